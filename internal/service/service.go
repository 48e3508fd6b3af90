// service — типизированные операции над REST-бэкендом: авторизация (Auth),
// анкета (Profile), лента и матчи (Explore).
//
// Единое соглашение об ошибках: каждая операция возвращает error;
// нормализованная ошибка бэкенда доступна через errors.As(*apierrors.Error),
// класс — через errors.Is с sentinel-значениями apierrors.
package service

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/pribylovaa/kelibe/internal/errors"
)

// embeddedError — ошибка внутри 2xx-ответа ({"error": ...}).
// Бэкенд кладёт туда строку или объект ошибок полей; трактуем как валидацию.
func embeddedError(raw json.RawMessage, fallback string) error {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == `""` {
		return nil
	}

	return apierrors.FromResponse(http.StatusBadRequest, raw, fallback)
}

// tokenstore хранит пару access/refresh клиентской сессии.
//
// Контракт для всех реализаций:
//   - Get возвращает пару; отсутствующий токен — пустая строка;
//   - Set пишет оба поля одной операцией, пустое поле удаляет
//     только соответствующий токен;
//   - Clear удаляет оба токена.
//
// Сроки жизни токенов не отслеживаются: истечение access обнаруживается
// по ответу 401, а не по сохранённой метке времени.
package tokenstore

import (
	"context"

	"github.com/pribylovaa/kelibe/internal/models"
)

// Store — хранилище пары токенов.
type Store interface {
	Get(ctx context.Context) (models.TokenPair, error)
	Set(ctx context.Context, pair models.TokenPair) error
	Clear(ctx context.Context) error
}

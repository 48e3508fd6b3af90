package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	apierrors "github.com/pribylovaa/kelibe/internal/errors"
	"github.com/pribylovaa/kelibe/internal/http/middleware"
)

// Routes — пути навигации, которые хендлеры отдают фронту в поле next.
type Routes struct {
	SignIn   string
	Landing  string
	Verify   string
	Insecure bool // cookie без Secure (локальная разработка)
}

// Handlers — хендлеры шлюза. Зависимости запроса (сессия, сервисы,
// состояние авторизации) берутся из middleware.Scope.
type Handlers struct {
	routes Routes
}

func New(routes Routes) *Handlers {
	if routes.SignIn == "" {
		routes.SignIn = "/auth/signin"
	}
	if routes.Landing == "" {
		routes.Landing = "/profile"
	}
	if routes.Verify == "" {
		routes.Verify = "/auth/verify"
	}

	return &Handlers{routes: routes}
}

// scope — Scope запроса; без мидлвара Sessions это ошибка сборки роутера.
func scope(r *http.Request) *middleware.Scope {
	sc := middleware.ScopeFrom(r.Context())
	if sc == nil {
		panic("handlers: no session scope in context")
	}
	return sc
}

// verifyPath — страница подтверждения e-mail с адресом в query.
func (h *Handlers) verifyPath(email string) string {
	if email == "" {
		return h.routes.Verify
	}
	return h.routes.Verify + "?email=" + url.QueryEscape(email)
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// invalidArgument — локальная ошибка разбора запроса -> 400/invalid_argument.
func invalidArgument(msg string) error {
	return &apierrors.Error{
		Kind:    apierrors.KindValidation,
		Status:  http.StatusBadRequest,
		Message: msg,
		Err:     apierrors.ErrValidation,
	}
}

// Routes возвращает пути навигации с подставленными значениями по умолчанию.
func (h *Handlers) Routes() Routes { return h.routes }

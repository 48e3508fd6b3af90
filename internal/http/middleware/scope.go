package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pribylovaa/kelibe/internal/apiclient"
	"github.com/pribylovaa/kelibe/internal/authstate"
	apierrors "github.com/pribylovaa/kelibe/internal/errors"
	"github.com/pribylovaa/kelibe/internal/service"
	"github.com/pribylovaa/kelibe/internal/session"
	"github.com/pribylovaa/kelibe/internal/tokenstore"
)

// Scope — зависимости одного HTTP-обмена: сессия поверх cookie запроса,
// клиент бэкенда с этой сессией, сервисы и состояние авторизации.
type Scope struct {
	Session *session.Service
	Client  *apiclient.Client
	Auth    *service.Auth
	Profile *service.Profile
	Explore *service.Explore
	State   *authstate.Context
}

// ScopeOptions — общие для всех запросов параметры.
type ScopeOptions struct {
	Client    apiclient.Options
	Refresher session.Refresher // общий на процесс (single-flight refresh)
	Cookies   tokenstore.CookieOptions
}

type scopeKey struct{}

// ScopeFrom возвращает Scope запроса или nil вне мидлвара Sessions.
func ScopeFrom(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// WithScope кладёт Scope в контекст.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// NewScope собирает Scope поверх произвольного хранилища.
func NewScope(store tokenstore.Store, opts ScopeOptions) (*Scope, error) {
	sess := session.New(store, opts.Refresher)

	cl, err := apiclient.New(opts.Client, sess)
	if err != nil {
		return nil, fmt.Errorf("middleware.NewScope: %w", err)
	}

	auth := service.NewAuth(cl, sess)

	return &Scope{
		Session: sess,
		Client:  cl,
		Auth:    auth,
		Profile: service.NewProfile(cl),
		Explore: service.NewExplore(cl),
		State:   authstate.New(auth, sess),
	}, nil
}

// Sessions строит Scope на каждый запрос: пара токенов живёт в cookie,
// обновлённая пара уходит клиенту в Set-Cookie этого же ответа.
func Sessions(opts ScopeOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc, err := NewScope(tokenstore.NewCookie(w, r, opts.Cookies), opts)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), sc)))
		})
	}
}

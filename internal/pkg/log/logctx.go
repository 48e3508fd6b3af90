// log связывает записи одного запроса гейтвея: логгер с request_id
// едет в context.Context от middleware до вызовов бэкенда и refresh.
package log

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// Into кладёт логгер запроса в контекст; nil не перетирает уже лежащий.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	if l == nil {
		return ctx
	}

	return context.WithValue(ctx, ctxKey{}, l)
}

// From возвращает логгер запроса, вне запроса — slog.Default().
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}

	return slog.Default()
}

// Op — логгер шага сессии (session.Refresh, authstate.SignIn, ...):
// атрибут op плюс переданные attrs поверх логгера запроса.
func Op(ctx context.Context, op string, attrs ...any) *slog.Logger {
	return From(ctx).With(append([]any{slog.String("op", op)}, attrs...)...)
}

package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	apierrors "github.com/pribylovaa/kelibe/internal/errors"
	logctx "github.com/pribylovaa/kelibe/internal/pkg/log"
)

var errPanic = errors.New("internal")

// Recover перехватывает panic и отвечает 500/internal в едином формате.
// Стек пишется в лог, наружу детали не уходят. http.ErrAbortHandler
// пробрасывается дальше: это штатный способ оборвать ответ.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "panic",
					slog.String("path", r.URL.Path),
					slog.Any("reason", rec),
					slog.String("stack", string(debug.Stack())),
				)
				apierrors.WriteError(w, r, errPanic)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

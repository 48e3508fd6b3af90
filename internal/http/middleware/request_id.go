package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pribylovaa/kelibe/internal/apiclient"
)

// HeaderRequestID — заголовок корреляции запросов.
const HeaderRequestID = "X-Request-Id"

// maxRequestIDLen — входящий id длиннее считается мусором и заменяется.
const maxRequestIDLen = 128

// RequestID обеспечивает наличие X-Request-Id:
//  1. берёт заголовок запроса, если он есть и разумной длины;
//  2. иначе генерирует uuid;
//  3. кладёт id в заголовки запроса и ответа и в контекст
//     (apiclient отправит его бэкенду тем же заголовком).
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
				r.Header.Set(HeaderRequestID, id)
			}
			w.Header().Set(HeaderRequestID, id)

			next.ServeHTTP(w, r.WithContext(apiclient.WithRequestID(r.Context(), id)))
		})
	}
}

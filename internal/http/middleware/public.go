package middleware

import (
	"net/http"
	"strings"
)

// IsPublicPath — путь совпадает с одним из публичных префиксов по границе
// сегмента ("/auth/signin" покрывает "/auth/signin/x", но не "/auth/signinx").
// Корень "/" публичен только сам по себе.
func IsPublicPath(path string, public []string) bool {
	for _, p := range public {
		if p == "" {
			continue
		}

		base := strings.TrimRight(p, "/")
		if base == "" {
			if path == "/" {
				return true
			}
			continue
		}

		if path == base || strings.HasPrefix(path, base+"/") {
			return true
		}
	}

	return false
}

// CookieGate — дешёвая проверка до обращения к бэкенду: непубличный путь
// без cookie токенов сразу уходит на вход (путь запоминается, как в Guard).
// Наличие cookie ещё не значит, что сессия жива: это решает Guard.
func CookieGate(public []string, opts GuardOptions, cookieNames ...string) Middleware {
	opts = opts.withDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublicPath(r.URL.Path, public) || hasAnyCookie(r, cookieNames) {
				next.ServeHTTP(w, r)
				return
			}

			if r.URL.Path != opts.SignIn {
				remember(w, r.URL.RequestURI(), opts)
			}
			http.Redirect(w, r, opts.SignIn, http.StatusFound)
		})
	}
}

func hasAnyCookie(r *http.Request, names []string) bool {
	for _, n := range names {
		if c, err := r.Cookie(n); err == nil && c.Value != "" {
			return true
		}
	}

	return false
}

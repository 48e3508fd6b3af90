package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pribylovaa/kelibe/internal/authstate"
	"github.com/pribylovaa/kelibe/internal/metrics"
	logctx "github.com/pribylovaa/kelibe/internal/pkg/log"
)

// CookieRedirect — cookie с путём, куда вернуть пользователя после входа.
const CookieRedirect = "kelibe_redirect_after_login"

// Решения guard (метка метрики).
const (
	decisionServe   = "serve"
	decisionLoading = "loading"
	decisionSignIn  = "signin"
	decisionLanding = "landing"
)

// GuardOptions — параметры route guard.
type GuardOptions struct {
	// RequireAuth — страница только для вошедших; false — только для гостей
	// (вход, регистрация).
	RequireAuth bool
	SignIn      string // по умолчанию /auth/signin
	Landing     string // по умолчанию /profile
	Insecure    bool   // cookie без Secure (локальная разработка)
	RememberTTL time.Duration
}

func (o GuardOptions) withDefaults() GuardOptions {
	if o.SignIn == "" {
		o.SignIn = "/auth/signin"
	}
	if o.Landing == "" {
		o.Landing = "/profile"
	}
	if o.RememberTTL <= 0 {
		o.RememberTTL = 30 * time.Minute
	}

	return o
}

// Guard оборачивает страницу проверкой авторизации:
//   - состояние ещё не инициализировано — инициализирует его;
//   - идёт инициализация — 503 с Retry-After и {"status":"loading"};
//   - нужна авторизация, а её нет — запоминает путь и уводит на вход;
//   - страница для гостей, а пользователь вошёл — уводит на запомненный
//     путь или на посадочную страницу;
//   - иначе отдаёт страницу.
func Guard(opts GuardOptions) Middleware {
	opts = opts.withDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc := ScopeFrom(r.Context())
			if sc == nil {
				panic("middleware.Guard: no session scope in context")
			}

			st := sc.State.State()
			if st.Status == authstate.StatusUninitialized {
				st = sc.State.Initialize(r.Context())
			}

			l := logctx.From(r.Context())

			switch {
			case !st.Settled():
				metrics.GuardDecisions.WithLabelValues(decisionLoading).Inc()
				writeLoading(w)

			case opts.RequireAuth && !st.IsAuthenticated():
				metrics.GuardDecisions.WithLabelValues(decisionSignIn).Inc()
				if r.URL.Path != opts.SignIn {
					remember(w, r.URL.RequestURI(), opts)
				}
				l.Debug("guard_redirect", slog.String("to", opts.SignIn))
				http.Redirect(w, r, opts.SignIn, http.StatusFound)

			case !opts.RequireAuth && st.IsAuthenticated():
				metrics.GuardDecisions.WithLabelValues(decisionLanding).Inc()
				target := opts.Landing
				if saved := Remembered(r, opts.SignIn); saved != "" {
					target = saved
				}
				Forget(w, opts.Insecure)
				l.Debug("guard_redirect", slog.String("to", target))
				http.Redirect(w, r, target, http.StatusFound)

			default:
				metrics.GuardDecisions.WithLabelValues(decisionServe).Inc()
				next.ServeHTTP(w, r)
			}
		})
	}
}

func writeLoading(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusServiceUnavailable)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "loading"})
}

func remember(w http.ResponseWriter, path string, opts GuardOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieRedirect,
		Value:    url.QueryEscape(path),
		Path:     "/",
		MaxAge:   int(opts.RememberTTL / time.Second),
		Secure:   !opts.Insecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Remembered возвращает сохранённый путь, если он локальный и это не страница входа.
func Remembered(r *http.Request, signIn string) string {
	c, err := r.Cookie(CookieRedirect)
	if err != nil {
		return ""
	}

	p, err := url.QueryUnescape(c.Value)
	if err != nil || !localPath(p) {
		return ""
	}

	if u, err := url.Parse(p); err == nil && u.Path == signIn {
		return ""
	}

	return p
}

// Forget удаляет сохранённый путь.
func Forget(w http.ResponseWriter, insecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieRedirect,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   !insecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// localPath отсекает открытые редиректы: только пути этого же хоста.
func localPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/kelibe/internal/http/handlers"
	"github.com/pribylovaa/kelibe/internal/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	Scope   middleware.ScopeOptions
	Routes  handlers.Routes
	// PublicPaths — префиксы, доступные без cookie сессии.
	PublicPaths []string
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(opts Options) http.Handler {
	h := handlers.New(opts.Routes)
	routes := h.Routes()

	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}
	root.Use(middleware.Sessions(opts.Scope)) // cookie-сессия запроса

	guest := middleware.GuardOptions{
		SignIn:   routes.SignIn,
		Landing:  routes.Landing,
		Insecure: routes.Insecure,
	}
	member := guest
	member.RequireAuth = true

	cookies := opts.Scope.Cookies
	gate := middleware.CookieGate(opts.PublicPaths, member,
		cookieName(cookies.AccessName, "accessToken"),
		cookieName(cookies.RefreshName, "refreshToken"),
	)
	guestOnly, authOnly := middleware.Guard(guest), middleware.Guard(member)

	// auth API: ошибки отдаются JSON-конвертом, без редиректов.
	root.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.SignUp)
		r.Post("/signin", h.SignIn)
		r.Post("/verify", h.Verify)
		r.Post("/resend-otp", h.ResendOTP)
		r.Post("/google", h.Google)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)

		r.With(guestOnly).Get("/signin", h.SignInPage)
		r.With(guestOnly).Get("/signup", h.SignUpPage)
	})

	// страницы только для вошедших.
	root.Group(func(r chi.Router) {
		r.Use(gate, authOnly)

		r.Get("/profile", h.ProfilePage)
		r.Patch("/profile", h.UpdateProfile)
		r.Get("/profile/category/{id}", h.CategoryPage)
		r.Post("/profile/category/{id}/responses", h.SaveResponses)
		r.Get("/explore", h.ExplorePage)
		r.Get("/matches", h.MatchesPage)
		r.Post("/matches/{id}", h.UpdateMatch)
		r.Get("/settings", h.SettingsPage)
		r.Patch("/settings", h.UpdateSettings)
	})

	return root
}

func cookieName(name, def string) string {
	if name == "" {
		return def
	}
	return name
}

package tokenstore

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pribylovaa/kelibe/internal/models"
)

// CookieOptions — параметры cookie-хранилища.
type CookieOptions struct {
	AccessName  string
	RefreshName string
	Domain      string
	Path        string
	Insecure    bool // только для локальной разработки без TLS
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	Now         func() time.Time
}

func (o CookieOptions) withDefaults() CookieOptions {
	if o.AccessName == "" {
		o.AccessName = "accessToken"
	}
	if o.RefreshName == "" {
		o.RefreshName = "refreshToken"
	}
	if o.Path == "" {
		o.Path = "/"
	}
	if o.AccessTTL <= 0 {
		o.AccessTTL = 7 * 24 * time.Hour
	}
	if o.RefreshTTL <= 0 {
		o.RefreshTTL = 30 * 24 * time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	return o
}

// Cookie — хранилище на время одного HTTP-обмена: читает пару из cookie
// запроса и пишет Set-Cookie в ответ. Cookie выставляются с Secure,
// HttpOnly и SameSite=Strict. Записанная пара сразу видна последующим Get
// в том же запросе (например, повтору запроса после refresh).
type Cookie struct {
	mu   sync.Mutex
	w    http.ResponseWriter
	opts CookieOptions
	pair models.TokenPair
}

var _ Store = (*Cookie)(nil)

func NewCookie(w http.ResponseWriter, r *http.Request, opts CookieOptions) *Cookie {
	opts = opts.withDefaults()

	c := &Cookie{w: w, opts: opts}
	if ck, err := r.Cookie(opts.AccessName); err == nil {
		c.pair.Access = ck.Value
	}
	if ck, err := r.Cookie(opts.RefreshName); err == nil {
		c.pair.Refresh = ck.Value
	}

	return c
}

func (c *Cookie) Get(_ context.Context) (models.TokenPair, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pair, nil
}

func (c *Cookie) Set(_ context.Context, pair models.TokenPair) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pair = pair
	c.write(c.opts.AccessName, pair.Access, c.opts.AccessTTL)
	c.write(c.opts.RefreshName, pair.Refresh, c.opts.RefreshTTL)

	return nil
}

func (c *Cookie) Clear(ctx context.Context) error {
	return c.Set(ctx, models.TokenPair{})
}

// write заменяет ранее выставленный в этом ответе Set-Cookie с тем же именем.
func (c *Cookie) write(name, value string, ttl time.Duration) {
	h := c.w.Header()
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, name+"=") {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}

	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.opts.Path,
		Domain:   c.opts.Domain,
		Secure:   !c.opts.Insecure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}

	if value == "" {
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
	} else {
		ck.Expires = c.expiry(value, ttl)
	}

	http.SetCookie(c.w, ck)
}

// expiry берёт срок из claim exp, если токен — JWT с будущим exp.
// Подпись не проверяется: это не авторизация, а только срок жизни cookie.
func (c *Cookie) expiry(token string, ttl time.Duration) time.Time {
	now := c.opts.Now()

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		if exp := claims.ExpiresAt.Time; exp.After(now) {
			return exp
		}
	}

	return now.Add(ttl)
}

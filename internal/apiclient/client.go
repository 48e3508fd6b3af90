// apiclient — HTTP-клиент REST-бэкенда.
//
// Все запросы идут через один Client с базовым URL и цепочкой транспортов
// (внешний -> внутренний): metadata -> auth (Bearer + refresh-and-retry) ->
// logging/metrics -> базовый транспорт. Ошибки нормализуются в *apierrors.Error.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apierrors "github.com/pribylovaa/kelibe/internal/errors"
	"github.com/pribylovaa/kelibe/internal/session"
)

// maxErrorBody — сколько байт тела ошибки читаем для разбора.
const maxErrorBody = 1 << 20

const defaultFallback = "request failed"

// Options — параметры клиента.
type Options struct {
	BaseURL   string        // например, http://localhost:8000/api/v1
	UserAgent string        // User-Agent исходящих запросов
	Timeout   time.Duration // дедлайн вызова, если у контекста его нет; <=0 — без дедлайна
	Logger    *slog.Logger  // nil — логгер из контекста запроса
	// HTTPClient — источник базового транспорта и политики редиректов (тесты, прокси).
	HTTPClient *http.Client
}

// Client — клиент бэкенда. Безопасен для конкурентного использования.
type Client struct {
	base    string
	hc      *http.Client
	timeout time.Duration
}

// New собирает клиент с авторизацией через сессию.
func New(opts Options, sess *session.Service) (*Client, error) {
	const op = "apiclient.New"

	if sess == nil {
		return nil, fmt.Errorf("%s: session is required", op)
	}

	return build(opts, func(next http.RoundTripper) http.RoundTripper {
		return authTransport(next, sess)
	})
}

func build(opts Options, auth func(http.RoundTripper) http.RoundTripper) (*Client, error) {
	const op = "apiclient.build"

	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse base url: %w", op, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: base url must be absolute: %q", op, opts.BaseURL)
	}

	baseRT := http.DefaultTransport
	var checkRedirect func(*http.Request, []*http.Request) error
	if opts.HTTPClient != nil {
		if opts.HTTPClient.Transport != nil {
			baseRT = opts.HTTPClient.Transport
		}
		checkRedirect = opts.HTTPClient.CheckRedirect
	}

	rt := loggingTransport(baseRT, opts.Logger)
	if auth != nil {
		rt = auth(rt)
	}
	rt = metadataTransport(rt, opts.UserAgent)

	return &Client{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		hc:      &http.Client{Transport: rt, CheckRedirect: checkRedirect},
		timeout: opts.Timeout,
	}, nil
}

// CallOption — параметры отдельного вызова.
type CallOption func(*call)

type call struct {
	query    url.Values
	fallback string
	bearer   string
}

// WithQuery добавляет query-параметры.
func WithQuery(q url.Values) CallOption {
	return func(c *call) { c.query = q }
}

// WithFallback задаёт сообщение, если тело ошибки не содержит ни detail, ни ошибок полей.
func WithFallback(msg string) CallOption {
	return func(c *call) { c.fallback = msg }
}

// WithBearer отправляет вызов с явно заданным токеном вместо токена сессии.
// Такой запрос не участвует в refresh-and-retry.
func WithBearer(token string) CallOption {
	return func(c *call) { c.bearer = token }
}

// Do выполняет запрос: in сериализуется в JSON (nil — без тела),
// 2xx-ответ декодируется в out (nil — тело отбрасывается).
//
// Ошибки:
//   - ответа нет — *apierrors.Error{Kind: KindNetwork}, исходная ошибка в Unwrap;
//   - не-2xx — *apierrors.Error по статусу и телу (см. apierrors.FromResponse).
func (c *Client) Do(ctx context.Context, method, path string, in, out any, opts ...CallOption) error {
	const op = "apiclient.Client.Do"

	cl := call{fallback: defaultFallback}
	for _, o := range opts {
		o(&cl)
	}

	if c.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
	}

	target := c.base + path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+cl.bearer)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return apierrors.Network(err, cl.fallback)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apierrors.FromResponse(resp.StatusCode, raw, cl.fallback)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("%s: decode: %w", op, err)
	}

	return nil
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

func (c *Client) Post(ctx context.Context, path string, in, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPost, path, in, out, opts...)
}

func (c *Client) Put(ctx context.Context, path string, in, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPut, path, in, out, opts...)
}

func (c *Client) Patch(ctx context.Context, path string, in, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPatch, path, in, out, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...CallOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, opts...)
}

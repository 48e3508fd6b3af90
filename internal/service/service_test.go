package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/kelibe/internal/apiclient"
	"github.com/pribylovaa/kelibe/internal/models"
	"github.com/pribylovaa/kelibe/internal/session"
	"github.com/pribylovaa/kelibe/internal/tokenstore"
)

// recorded — запрос, который увидел фейковый бэкенд.
type recorded struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

// fakeBackend — httptest-сервер с ответами по "METHOD path".
type fakeBackend struct {
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  []recorded
}

func (b *fakeBackend) on(method, path string, status int, body string) {
	b.handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

func (b *fakeBackend) handle(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.routes == nil {
		b.routes = map[string]http.HandlerFunc{}
	}
	b.routes[method+" "+path] = h
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.calls = append(b.calls, recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
		Body:   string(raw),
	})
	h := b.routes[r.Method+" "+r.URL.Path]
	b.mu.Unlock()

	if h == nil {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (b *fakeBackend) requests(method, path string) []recorded {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []recorded
	for _, c := range b.calls {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}

	return out
}

type env struct {
	be      *fakeBackend
	store   *tokenstore.Memory
	session *session.Service
	api     *apiclient.Client
}

func newEnv(t *testing.T, pair models.TokenPair) *env {
	t.Helper()

	be := &fakeBackend{}
	srv := httptest.NewServer(be)
	t.Cleanup(srv.Close)

	opts := apiclient.Options{BaseURL: srv.URL, Timeout: 5 * time.Second}
	ref, err := apiclient.NewRefresher(opts)
	require.NoError(t, err)

	st := tokenstore.NewMemory()
	require.NoError(t, st.Set(context.Background(), pair))

	sess := session.New(st, ref)
	api, err := apiclient.New(opts, sess)
	require.NoError(t, err)

	return &env{be: be, store: st, session: sess, api: api}
}

func (e *env) tokens(t *testing.T) models.TokenPair {
	t.Helper()

	p, err := e.store.Get(context.Background())
	require.NoError(t, err)

	return p
}

func decodeBody(t *testing.T, body string) map[string]any {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &m))

	return m
}

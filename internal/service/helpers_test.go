package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/and161185/enlite/internal/api"
	"github.com/and161185/enlite/internal/model"
	"github.com/and161185/enlite/internal/repository/memory"
	"github.com/and161185/enlite/internal/session"
	"github.com/and161185/enlite/internal/widget"
)

// call is one request seen by the fake backend.
type call struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

type reply struct {
	status int
	body   string
}

// fakeBackend is an httptest server answering canned JSON per method+path.
type fakeBackend struct {
	srv *httptest.Server

	mu      sync.Mutex
	calls   []call
	replies map[string]reply
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	f := &fakeBackend{replies: map[string]reply{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeBackend) on(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[method+" "+path] = reply{status: status, body: body}
}

func (f *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.calls = append(f.calls, call{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: body})
	rep, ok := f.replies[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"not found"}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	_, _ = io.WriteString(w, rep.body)
}

func (f *fakeBackend) callsTo(path string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeBackend) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newAPIClient(t *testing.T, base string, store, scoped *memory.Store) *api.Client {
	t.Helper()
	c, err := api.New(context.Background(), base, store, scoped, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return c
}

// recordingNav remembers every navigation.
type recordingNav struct {
	mu    sync.Mutex
	paths []string
}

var _ Navigator = (*recordingNav)(nil)

func (n *recordingNav) Navigate(p string) {
	n.mu.Lock()
	n.paths = append(n.paths, p)
	n.mu.Unlock()
}

func (n *recordingNav) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

// fakeLoader optionally blocks until gate is closed.
type fakeLoader struct {
	mu    sync.Mutex
	err   error
	gate  chan struct{}
	calls int
}

var _ widget.Loader = (*fakeLoader)(nil)

func (l *fakeLoader) Load(ctx context.Context) error {
	l.mu.Lock()
	l.calls++
	gate := l.gate
	l.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return l.err
}

// fakeWidget captures the options and the completion callback.
type fakeWidget struct {
	mu        sync.Mutex
	opened    []widget.Options
	ctx       context.Context
	onDone    func(model.PaymentConfirmation)
	openErr   error
	openPanic bool
}

var _ widget.PaymentWidget = (*fakeWidget)(nil)

func (w *fakeWidget) Open(ctx context.Context, opts widget.Options, onComplete func(model.PaymentConfirmation)) error {
	if w.openPanic {
		panic("widget exploded")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.openErr != nil {
		return w.openErr
	}
	w.opened = append(w.opened, opts)
	w.ctx = ctx
	w.onDone = onComplete
	return nil
}

// complete simulates the user finishing payment in the hosted UI.
func (w *fakeWidget) complete(t *testing.T, conf model.PaymentConfirmation) {
	t.Helper()
	w.mu.Lock()
	fn := w.onDone
	w.mu.Unlock()
	if fn == nil {
		t.Fatalf("widget was not opened")
	}
	fn(conf)
}

type fakeSession struct {
	st  session.State
	err error
}

var _ SessionReader = fakeSession{}

func (s fakeSession) Current(context.Context) (session.State, error) { return s.st, s.err }

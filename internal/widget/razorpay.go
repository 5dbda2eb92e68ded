package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	u "github.com/gofrs/uuid/v5"
	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/and161185/enlite/internal/errs"
	"github.com/and161185/enlite/internal/model"
)

// DefaultScriptURL is the gateway's hosted checkout script.
const DefaultScriptURL = "https://checkout.razorpay.com/v1/checkout.js"

var page = template.Must(template.New("checkout").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{.Options.Name}}</title></head>
<body>
<p id="status">Opening secure checkout&hellip;</p>
<script src="{{.ScriptURL}}"></script>
<script>
var options = {{.Options}};
options.handler = function (resp) {
  fetch({{.CompletePath}}, {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify(resp)
  }).then(function () {
    document.getElementById("status").textContent = "Payment submitted. You can close this tab.";
  });
};
new Razorpay(options).open();
</script>
</body>
</html>
`))

// Razorpay serves the hosted checkout from a loopback HTTP server and opens
// it in the system browser. The completion handler posts back to that server.
type Razorpay struct {
	scriptURL string
	addr      string
	hc        *http.Client
	log       *zap.Logger
	opener    func(url string) error

	mu     sync.Mutex
	loaded bool
}

var (
	_ PaymentWidget = (*Razorpay)(nil)
	_ Loader        = (*Razorpay)(nil)
)

// RazorpayOption customizes Razorpay.
type RazorpayOption func(*Razorpay)

// WithOpener replaces the browser launcher; nil means only log the URL.
func WithOpener(fn func(url string) error) RazorpayOption {
	return func(r *Razorpay) { r.opener = fn }
}

// WithHTTPClient sets the client used to fetch the script.
func WithHTTPClient(hc *http.Client) RazorpayOption {
	return func(r *Razorpay) { r.hc = hc }
}

// NewRazorpay builds the widget. addr is the loopback listen address
// ("127.0.0.1:0" picks a free port).
func NewRazorpay(scriptURL, addr string, log *zap.Logger, opts ...RazorpayOption) *Razorpay {
	if scriptURL == "" {
		scriptURL = DefaultScriptURL
	}
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Razorpay{
		scriptURL: scriptURL,
		addr:      addr,
		hc:        &http.Client{Timeout: 15 * time.Second},
		log:       log,
		opener:    browser.OpenURL,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Load checks the script is reachable. A successful load is remembered.
func (r *Razorpay) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.scriptURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrWidgetUnavailable, err)
	}
	resp, err := r.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrWidgetUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: script status %d", errs.ErrWidgetUnavailable, resp.StatusCode)
	}
	r.loaded = true
	return nil
}

// Open starts the loopback server and launches the page. The server stops
// after the first valid completion or when ctx is cancelled.
func (r *Razorpay) Open(ctx context.Context, opts Options, onComplete func(model.PaymentConfirmation)) error {
	nonce, err := u.NewV4()
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", r.addr)
	if err != nil {
		return fmt.Errorf("widget: listen: %w", err)
	}

	done := make(chan struct{})
	h := &checkoutHandler{
		scriptURL:  r.scriptURL,
		state:      nonce.String(),
		opts:       opts,
		onComplete: onComplete,
		done:       done,
		log:        r.log,
	}
	srv := &http.Server{Handler: h.routes(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.Error("widget server", zap.Error(err))
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	url := "http://" + lis.Addr().String() + "/"
	r.log.Info("payment widget ready", zap.String("url", url), zap.String("order_id", opts.OrderID))
	if r.opener != nil {
		if err := r.opener(url); err != nil {
			r.log.Warn("could not launch browser; open the url manually", zap.String("url", url), zap.Error(err))
		}
	}
	return nil
}

type checkoutHandler struct {
	scriptURL  string
	state      string
	opts       Options
	onComplete func(model.PaymentConfirmation)
	done       chan struct{}
	log        *zap.Logger

	once sync.Once
}

func (h *checkoutHandler) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", h.servePage)
	r.Post("/complete", h.complete)
	return r
}

func (h *checkoutHandler) servePage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	data := struct {
		ScriptURL    string
		Options      Options
		CompletePath string
	}{h.scriptURL, h.opts, "/complete?state=" + h.state}
	if err := page.Execute(w, data); err != nil {
		h.log.Error("render checkout page", zap.Error(err))
	}
}

func (h *checkoutHandler) complete(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("state") != h.state {
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, map[string]string{"error": "bad state"})
		return
	}
	var conf model.PaymentConfirmation
	if err := json.NewDecoder(r.Body).Decode(&conf); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid body"})
		return
	}

	fired := false
	h.once.Do(func() {
		fired = true
		close(h.done)
	})
	if !fired {
		render.Status(r, http.StatusGone)
		render.JSON(w, r, map[string]string{"error": "already completed"})
		return
	}

	render.JSON(w, r, map[string]string{"status": "ok"})
	go h.onComplete(conf)
}

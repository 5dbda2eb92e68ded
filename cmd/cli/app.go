package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/and161185/enlite/internal/api"
	"github.com/and161185/enlite/internal/config"
	"github.com/and161185/enlite/internal/errs"
	"github.com/and161185/enlite/internal/model"
	"github.com/and161185/enlite/internal/repository"
	"github.com/and161185/enlite/internal/repository/file"
	"github.com/and161185/enlite/internal/repository/memory"
	"github.com/and161185/enlite/internal/repository/redis"
	"github.com/and161185/enlite/internal/service"
	"github.com/and161185/enlite/internal/session"
	"github.com/and161185/enlite/internal/widget"
)

// app holds the wired client for one command invocation.
type app struct {
	cfg *config.Config
	log *zap.Logger
	out io.Writer

	store     repository.KV
	closeFn   func() error
	closeOnce sync.Once

	client   *api.Client
	sess     *session.Accessor
	notifier *session.Notifier
	nav      *printNav
	auth     *service.AuthServiceImpl

	// opener shows the checkout page; nil means the system browser.
	opener func(url string) error
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, out io.Writer) (*app, error) {
	store, closeFn, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	// per-process scratch space, wiped on logout
	scoped := memory.New()

	client, err := api.New(ctx, cfg.APIBase, store, scoped, log, api.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		_ = closeFn()
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		out:      out,
		store:    store,
		closeFn:  closeFn,
		client:   client,
		sess:     session.NewAccessor(store),
		notifier: session.NewNotifier(),
		nav:      newPrintNav(out),
	}
	a.notifier.Subscribe(func() { log.Debug("session changed") })

	opts := []service.AuthOption{service.WithTokenSettleDelay(cfg.TokenSettleDelay)}
	if reg := cfg.RegisterURL(); reg != cfg.APIBase {
		regClient, err := api.New(ctx, reg, memory.New(), nil, log, api.WithTimeout(cfg.RequestTimeout))
		if err != nil {
			_ = closeFn()
			return nil, err
		}
		opts = append(opts, service.WithRegistrar(regClient))
	}
	a.auth = service.NewAuthService(client, store, a.notifier, a.nav, log, opts...)
	return a, nil
}

// openStore picks the persistent session backend.
func openStore(ctx context.Context, cfg config.Storage) (repository.KV, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case "memory":
		return memory.New(), noop, nil
	case "redis":
		s, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "file", "":
		dir := cfg.Dir
		if dir == "" {
			dir = file.DefaultDir()
		}
		return file.New(dir), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func (a *app) close() {
	a.closeOnce.Do(func() {
		if err := a.closeFn(); err != nil {
			a.log.Warn("close store", zap.Error(err))
		}
	})
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	u := fs.String("u", "", "username")
	e := fs.String("e", "", "email")
	p := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.auth.Register(ctx, model.Registration{Username: *u, Email: *e, Password: *p}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "registered; please log in")
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	u := fs.String("u", "", "username")
	p := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := a.auth.Login(ctx, model.Credentials{Username: *u, Password: *p})
	if err != nil {
		return err
	}
	role := "user"
	if res.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(a.out, "logged in as %s (%s)\n", res.Username, role)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	st, err := a.sess.Current(ctx)
	if err != nil {
		return err
	}
	if !st.IsAuthenticated {
		fmt.Fprintln(a.out, "not logged in")
		if st.PendingRedirect != "" {
			fmt.Fprintf(a.out, "after login: %s\n", st.PendingRedirect)
		}
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "server\t%s\n", a.client.BaseURL())
	fmt.Fprintf(tw, "username\t%s\n", st.User.Username)
	fmt.Fprintf(tw, "email\t%s\n", st.User.Email)
	fmt.Fprintf(tw, "phone\t%s\n", st.User.Phone)
	fmt.Fprintf(tw, "admin\t%t\n", st.IsAdmin)
	if exp, ok := api.TokenExpiry(a.client.Token()); ok {
		fmt.Fprintf(tw, "expires\t%s\n", exp.UTC().Format(time.RFC3339))
	}
	if len(st.Subscription) > 0 {
		fmt.Fprintf(tw, "subscription\t%s\n", st.Subscription)
	}
	if st.PendingRedirect != "" {
		fmt.Fprintf(tw, "after login\t%s\n", st.PendingRedirect)
	}
	return tw.Flush()
}

func (a *app) plans() error {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAN\tPRICE\tCODE")
	for _, p := range model.Plans() {
		fmt.Fprintf(tw, "%s\t%d %s\t%s\n", p.Label, p.Price, a.cfg.Widget.Currency, p.APICode)
	}
	return tw.Flush()
}

func (a *app) redirect(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("redirect", flag.ContinueOnError)
	set := fs.String("set", "", "path to open after the next login")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.auth.QueueRedirect(ctx, *set); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

func (a *app) checkout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	planName := fs.String("plan", "", "plan name (Basic|Super|Premium)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rp := widget.NewRazorpay(a.cfg.Widget.ScriptURL, a.cfg.Widget.ListenAddr, a.log, widget.WithOpener(a.widgetOpener()))
	co := service.NewCheckout(*planName, service.CheckoutDeps{
		API:           a.client,
		Widget:        rp,
		Loader:        rp,
		Session:       a.sess,
		Nav:           a.nav,
		Log:           a.log,
		Currency:      a.cfg.Widget.Currency,
		Merchant:      a.cfg.Widget.Merchant,
		ThemeColor:    a.cfg.Widget.ThemeColor,
		RedirectDelay: a.cfg.RedirectDelay,
	})

	v := co.View()
	if !v.Valid {
		a.nav.Navigate(v.BackTo)
		return errs.Alert(v.Message, errs.ErrInvalidPlan)
	}

	st, err := a.sess.Current(ctx)
	if err != nil {
		return err
	}
	if !st.IsAuthenticated {
		target := service.RouteInvoice + "?plan=" + url.QueryEscape(*planName)
		if err := a.auth.QueueRedirect(ctx, target); err != nil {
			return err
		}
		a.nav.Navigate(service.RouteLogin)
		return errs.Alert("Please log in to continue; checkout resumes after login", errs.ErrNotAuthenticated)
	}

	fmt.Fprintf(a.out, "%s plan: %d %s\n", v.Plan.Label, v.Plan.Price, a.cfg.Widget.Currency)

	if err := co.Submit(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "complete the payment in the opened page")

	v, err = co.Wait(ctx)
	if err != nil {
		return err
	}
	if v.State != service.StateSucceeded {
		return errs.Alert(v.Message, nil)
	}
	fmt.Fprintln(a.out, v.Message)

	select {
	case <-a.nav.navigated:
	case <-ctx.Done():
	}
	return nil
}

func (a *app) widgetOpener() func(string) error {
	if a.opener != nil {
		return a.opener
	}
	if a.cfg.Widget.Headless {
		return func(u string) error {
			fmt.Fprintf(a.out, "open %s to pay\n", u)
			return nil
		}
	}
	return func(u string) error {
		if err := browser.OpenURL(u); err != nil {
			a.log.Warn("cannot launch browser", zap.Error(err))
			fmt.Fprintf(a.out, "open %s to pay\n", u)
		}
		return nil
	}
}

// printNav reports navigation targets on out.
type printNav struct {
	mu        sync.Mutex
	out       io.Writer
	navigated chan string
}

var _ service.Navigator = (*printNav)(nil)

func newPrintNav(out io.Writer) *printNav {
	return &printNav{out: out, navigated: make(chan string, 1)}
}

func (n *printNav) Navigate(path string) {
	n.mu.Lock()
	fmt.Fprintf(n.out, "-> %s\n", path)
	n.mu.Unlock()
	select {
	case n.navigated <- path:
	default:
	}
}

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/enlite/internal/api"
	"github.com/and161185/enlite/internal/errs"
	"github.com/and161185/enlite/internal/model"
	"github.com/and161185/enlite/internal/widget"
)

// CheckoutState is a step of the checkout state machine.
type CheckoutState string

const (
	StateAwaitingPlan CheckoutState = "awaiting-plan-selection"
	StateOrderCreated CheckoutState = "order-created"
	StateWidgetOpen   CheckoutState = "widget-open"
	StateVerifying    CheckoutState = "verifying"
	StateSucceeded    CheckoutState = "succeeded"
	StateFailed       CheckoutState = "failed"
)

// User-facing checkout messages.
const (
	MsgInvalidPlan   = "Error: Invalid plan selected."
	MsgWidgetLoad    = "Razorpay SDK failed to load. Are you connected to the internet?"
	MsgPaymentOK     = "Payment successful! Your subscription is active."
	msgOrderFailed   = "Failed to create order: "
	msgVerifyFailed  = "Payment verification failed: "
	msgUnexpected    = "An unexpected error occurred: "
	defaultPayerName = "New User"
)

// DefaultRedirectDelay is how long the success message stays before
// navigating to the profile.
const DefaultRedirectDelay = 3 * time.Second

// CheckoutDeps are the collaborators of a Checkout.
type CheckoutDeps struct {
	API     Poster
	Widget  widget.PaymentWidget
	Loader  widget.Loader
	Session SessionReader
	Nav     Navigator
	Log     *zap.Logger

	Currency      string
	Merchant      string
	ThemeColor    string
	RedirectDelay time.Duration
}

// CheckoutView is everything a renderer needs.
type CheckoutView struct {
	PlanName   string
	Plan       model.Plan
	OrderID    string
	Valid      bool
	State      CheckoutState
	Message    string
	Submitting bool
	CanSubmit  bool
	BackTo     string
}

// Checkout drives one plan purchase. Submissions are serialized by a
// submitting flag checked under the mutex; there is no idempotency key, so
// each accepted Submit creates a new order.
type Checkout struct {
	deps     CheckoutDeps
	planName string
	plan     model.Plan
	valid    bool

	mu         sync.Mutex
	state      CheckoutState
	message    string
	submitting bool
	order      model.PaymentOrder
	result     *model.VerificationResult
	done       chan struct{} // closed when the current attempt's verification ends
}

// NewCheckout resolves planName against the catalog. An unknown plan puts the
// checkout in the failed state for good; it never touches the network.
func NewCheckout(planName string, deps CheckoutDeps) *Checkout {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Currency == "" {
		deps.Currency = "INR"
	}
	plan, ok := model.LookupPlan(planName)
	c := &Checkout{deps: deps, planName: planName, plan: plan, valid: ok, state: StateAwaitingPlan}
	if !ok {
		c.state = StateFailed
		c.message = MsgInvalidPlan
	}
	return c
}

// View returns a consistent snapshot of the checkout.
func (c *Checkout) View() CheckoutView {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := CheckoutView{
		PlanName:   c.planName,
		Plan:       c.plan,
		Valid:      c.valid,
		State:      c.state,
		Message:    c.message,
		OrderID:    c.order.OrderID,
		Submitting: c.submitting,
		CanSubmit:  c.valid && !c.submitting && c.state != StateSucceeded,
	}
	if !c.valid {
		v.BackTo = RoutePricing
	}
	return v
}

// Result returns the verification outcome of the last finished attempt.
func (c *Checkout) Result() (model.VerificationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return model.VerificationResult{}, false
	}
	return *c.result, true
}

// Submit loads the widget, creates an order and opens the widget. It returns
// once the widget is open; verification happens when the widget completes.
// Any failure re-enables submission and is returned as an *errs.AlertError.
// ctx bounds only the load and order steps; the open widget ignores it.
func (c *Checkout) Submit(ctx context.Context) (err error) {
	c.mu.Lock()
	if !c.valid {
		c.mu.Unlock()
		return errs.Alert(MsgInvalidPlan, errs.ErrInvalidPlan)
	}
	if c.submitting {
		c.mu.Unlock()
		return errs.ErrBusy
	}
	if c.state == StateSucceeded {
		c.mu.Unlock()
		return errs.ErrAlreadyPaid
	}
	c.submitting = true
	c.message = ""
	c.state = StateAwaitingPlan
	c.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			c.deps.Log.Error("checkout panic", zap.Any("reason", r))
			err = c.abort(StateAwaitingPlan, msgUnexpected+fmt.Sprint(r), fmt.Errorf("panic: %v", r))
		}
	}()

	if err := c.deps.Loader.Load(ctx); err != nil {
		c.deps.Log.Warn("widget load failed", zap.Error(err))
		return c.abort(StateAwaitingPlan, MsgWidgetLoad, err)
	}

	var order model.PaymentOrder
	if err := c.deps.API.Post(ctx, "/razorpay/create-order/", model.CreateOrderRequest{Plan: c.plan.APICode}, &order); err != nil {
		c.deps.Log.Warn("create order failed", zap.String("plan", c.plan.APICode), zap.Error(err))
		if msg := api.ServerMessage(err); msg != "" {
			return c.abort(StateAwaitingPlan, msgOrderFailed+msg, err)
		}
		return c.abort(StateAwaitingPlan, msgUnexpected+err.Error(), err)
	}
	if order.Error != "" {
		c.deps.Log.Warn("create order rejected", zap.String("plan", c.plan.APICode), zap.String("error", order.Error))
		return c.abort(StateAwaitingPlan, msgOrderFailed+order.Error, fmt.Errorf("create order: %s", order.Error))
	}

	c.mu.Lock()
	c.order = order
	c.state = StateOrderCreated
	c.mu.Unlock()

	opts := c.widgetOptions(ctx, order)
	done := make(chan struct{})
	// set before Open: the widget may complete before Open returns
	c.mu.Lock()
	c.state = StateWidgetOpen
	c.done = done
	c.result = nil
	c.mu.Unlock()

	// the widget waits for the payer and verification must follow it, both
	// regardless of the caller's cancellation
	vctx := context.WithoutCancel(ctx)
	if err := c.deps.Widget.Open(vctx, opts, func(conf model.PaymentConfirmation) {
		c.verify(vctx, conf, done)
	}); err != nil {
		return c.abort(StateAwaitingPlan, msgUnexpected+err.Error(), err)
	}
	c.deps.Log.Info("payment widget opened", zap.String("order_id", order.OrderID), zap.Int64("amount", order.Amount))
	return nil
}

// abort records a resubmittable failure. No attempt is in flight afterwards.
func (c *Checkout) abort(state CheckoutState, msg string, cause error) error {
	c.mu.Lock()
	c.state = state
	c.message = msg
	c.submitting = false
	c.done = nil
	c.mu.Unlock()
	return errs.Alert(msg, cause)
}

// widgetOptions builds the widget configuration with best-effort prefill.
func (c *Checkout) widgetOptions(ctx context.Context, order model.PaymentOrder) widget.Options {
	prefill := widget.Prefill{Name: defaultPayerName}
	if c.deps.Session != nil {
		if st, err := c.deps.Session.Current(ctx); err == nil && st.User != nil {
			prefill = widget.Prefill{Name: orDefault(st.User.Username, defaultPayerName), Email: st.User.Email, Contact: st.User.Phone}
		}
	}
	return widget.Options{
		Key:         order.Key,
		Amount:      order.Amount,
		Currency:    c.deps.Currency,
		Name:        c.deps.Merchant,
		Description: c.planName + " Plan Subscription",
		OrderID:     order.OrderID,
		Prefill:     prefill,
		Theme:       widget.Theme{Color: c.deps.ThemeColor},
	}
}

// verify forwards the widget confirmation verbatim to the backend.
func (c *Checkout) verify(ctx context.Context, conf model.PaymentConfirmation, done chan struct{}) {
	defer close(done)

	c.mu.Lock()
	c.state = StateVerifying
	c.submitting = true
	c.mu.Unlock()

	var res model.VerifyResponse
	err := c.deps.API.Post(ctx, "/razorpay/verify-payment/", conf, &res)

	var out model.VerificationResult
	switch {
	case err != nil:
		out.Error = orDefault(api.ServerMessage(err), err.Error())
	case res.Error != "":
		out.Error = res.Error
	default:
		out.Success = true
	}

	c.mu.Lock()
	c.result = &out
	c.submitting = false
	if out.Success {
		c.state = StateSucceeded
		c.message = MsgPaymentOK
	} else {
		c.state = StateFailed
		c.message = msgVerifyFailed + out.Error
	}
	c.mu.Unlock()

	if !out.Success {
		c.deps.Log.Warn("payment verification failed", zap.String("order_id", conf.OrderID), zap.String("error", out.Error))
		return
	}
	c.deps.Log.Info("payment verified", zap.String("order_id", conf.OrderID))
	delay := c.deps.RedirectDelay
	if delay <= 0 {
		delay = DefaultRedirectDelay
	}
	time.AfterFunc(delay, func() { c.deps.Nav.Navigate(RouteProfile) })
}

// Wait blocks until the in-flight attempt finishes verification, then returns
// the view. Without an attempt in flight it returns immediately.
func (c *Checkout) Wait(ctx context.Context) (CheckoutView, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return c.View(), nil
	}
	select {
	case <-done:
		return c.View(), nil
	case <-ctx.Done():
		return c.View(), ctx.Err()
	}
}

// Package widget abstracts the hosted payment widget that collects payment
// details outside this program's trust boundary.
package widget

import (
	"context"

	"github.com/and161185/enlite/internal/model"
)

// Prefill is best-effort customer data shown in the widget.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// Theme is the widget colour scheme.
type Theme struct {
	Color string `json:"color"`
}

// Options configure one widget interaction. Field names follow the gateway's
// checkout options.
type Options struct {
	Key         string  `json:"key"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	OrderID     string  `json:"order_id"`
	Prefill     Prefill `json:"prefill"`
	Theme       Theme   `json:"theme"`
}

// PaymentWidget opens the hosted widget. Open returns once the widget is
// showing; onComplete fires later, at most once, with the signed confirmation.
// There is no timeout: the widget waits for the user.
type PaymentWidget interface {
	Open(ctx context.Context, opts Options, onComplete func(model.PaymentConfirmation)) error
}

// Loader makes the widget available. Implementations load at most once.
type Loader interface {
	Load(ctx context.Context) error
}

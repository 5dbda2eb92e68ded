// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across client layers.
var (
	// ErrInvalidPlan indicates the requested plan is not in the static catalog.
	ErrInvalidPlan = errors.New("invalid plan")

	// ErrBusy indicates a checkout submission is already in flight.
	ErrBusy = errors.New("submission in progress")

	// ErrAlreadyPaid indicates the checkout already completed successfully.
	ErrAlreadyPaid = errors.New("checkout already paid")

	// ErrMissingToken indicates a 2xx auth response that carried no token.
	ErrMissingToken = errors.New("missing token in response")

	// ErrWidgetUnavailable indicates the payment widget script could not be loaded.
	ErrWidgetUnavailable = errors.New("payment widget unavailable")

	// ErrNotAuthenticated indicates an operation that needs a stored session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrValidation indicates client-side form validation failed.
	ErrValidation = errors.New("validation")
)

// AlertError is a failure meant to be shown to the user verbatim.
type AlertError struct {
	Message string
	Err     error
}

// Alert builds an AlertError around an optional cause.
func Alert(msg string, cause error) *AlertError {
	return &AlertError{Message: msg, Err: cause}
}

func (e *AlertError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AlertError) Unwrap() error { return e.Err }

// AlertMessage returns the user-facing text of err, falling back to err.Error().
func AlertMessage(err error) string {
	var a *AlertError
	if errors.As(err, &a) {
		return a.Message
	}
	return err.Error()
}

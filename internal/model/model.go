// Package model defines the client-side domain entities exchanged with the backend.
package model

import "encoding/json"

// Credentials are the login form fields.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Registration are the sign-up form fields.
type Registration struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is the body returned by /login/ and /register/.
// A 2xx response without Token is still a failure.
type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	Error    string `json:"error,omitempty"`
}

// SubscriptionSnapshot is the body of GET /subscription/. The subscription
// itself is opaque to the client and cached as raw JSON.
type SubscriptionSnapshot struct {
	Subscription json.RawMessage `json:"subscription"`
}

// CreateOrderRequest asks the backend for a payment order.
type CreateOrderRequest struct {
	Plan string `json:"plan"`
}

// PaymentOrder is issued per checkout attempt and lives for one widget interaction.
type PaymentOrder struct {
	Amount  int64  `json:"amount"` // minor units, computed by the backend
	OrderID string `json:"order_id"`
	Key     string `json:"key"` // widget key issued by the server
	Error   string `json:"error,omitempty"`
}

// PaymentConfirmation is the signed payload produced by the widget on completion.
// It is forwarded to the backend verbatim.
type PaymentConfirmation struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

// VerificationResult is the terminal outcome of one checkout attempt.
type VerificationResult struct {
	Success bool
	Error   string
}

// VerifyResponse is the body of /razorpay/verify-payment/; success is implicit
// when Error is empty.
type VerifyResponse struct {
	Error string `json:"error,omitempty"`
}

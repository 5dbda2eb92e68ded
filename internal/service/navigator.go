package service

import (
	"context"

	"github.com/and161185/enlite/internal/session"
)

// Routes the flows redirect to.
const (
	RouteProfile        = "/profile"
	RouteAdminDashboard = "/admin-dashboard"
	RouteLogin          = "/login"
	RoutePricing        = "/pricing"
	RouteInvoice        = "/invoice"
)

// Navigator moves the user to another view.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Navigate calls f(path).
func (f NavigatorFunc) Navigate(path string) { f(path) }

// Poster is the part of the API client that sends JSON bodies.
type Poster interface {
	Post(ctx context.Context, path string, body, out any) error
}

// Backend is the part of the API client used by the auth flows.
type Backend interface {
	Poster
	Get(ctx context.Context, path string, out any) error
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// SessionReader yields the derived session state.
type SessionReader interface {
	Current(ctx context.Context) (session.State, error)
}

// Package session derives the current authentication state from the
// persisted key-value store and broadcasts session changes.
package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/and161185/enlite/internal/repository"
)

// Placeholder identity fields. They are not stored anywhere; callers must
// tolerate them until a profile is fetched.
const (
	PlaceholderEmail = "placeholder@example.com"
	PlaceholderPhone = "0000000000"
)

// Snapshot is a raw read of the persisted keys.
type Snapshot struct {
	Token        string
	HasToken     bool
	Username     string
	IsAdmin      string
	Redirect     string
	Subscription string
}

// User is derived from the snapshot on every read and never persisted.
type User struct {
	Username string
	Email    string
	Phone    string
}

// State is what views consume.
type State struct {
	User            *User
	IsAuthenticated bool
	IsAdmin         bool
	PendingRedirect string
	Subscription    json.RawMessage
}

// Derive is a pure function of the snapshot. A token without a username
// still counts as authenticated.
func Derive(s Snapshot) State {
	st := State{
		IsAuthenticated: s.HasToken && s.Token != "",
		PendingRedirect: s.Redirect,
	}
	if !st.IsAuthenticated {
		return st
	}
	st.User = &User{
		Username: s.Username,
		Email:    PlaceholderEmail,
		Phone:    PlaceholderPhone,
	}
	st.IsAdmin = s.IsAdmin == "true"
	if s.Subscription != "" && json.Valid([]byte(s.Subscription)) {
		st.Subscription = json.RawMessage(s.Subscription)
	}
	return st
}

// Accessor reads the store on every call; it holds no state of its own.
type Accessor struct {
	store repository.KV
}

// NewAccessor returns an accessor over store.
func NewAccessor(store repository.KV) *Accessor {
	return &Accessor{store: store}
}

// Snapshot reads all session keys.
func (a *Accessor) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	var err error
	if s.Token, s.HasToken, err = a.store.Get(ctx, repository.KeyToken); err != nil {
		return Snapshot{}, fmt.Errorf("session: %w", err)
	}
	if s.Username, _, err = a.store.Get(ctx, repository.KeyUsername); err != nil {
		return Snapshot{}, fmt.Errorf("session: %w", err)
	}
	if s.IsAdmin, _, err = a.store.Get(ctx, repository.KeyIsAdmin); err != nil {
		return Snapshot{}, fmt.Errorf("session: %w", err)
	}
	if s.Redirect, _, err = a.store.Get(ctx, repository.KeyPostLoginRedirect); err != nil {
		return Snapshot{}, fmt.Errorf("session: %w", err)
	}
	if s.Subscription, _, err = a.store.Get(ctx, repository.KeySubscription); err != nil {
		return Snapshot{}, fmt.Errorf("session: %w", err)
	}
	return s, nil
}

// Current reads and derives the state.
func (a *Accessor) Current(ctx context.Context) (State, error) {
	s, err := a.Snapshot(ctx)
	if err != nil {
		return State{}, err
	}
	return Derive(s), nil
}

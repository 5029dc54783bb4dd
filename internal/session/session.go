// Package session binds the caller of one request to an employee. A Session
// lives in the request's context.Context; nothing is shared across requests.
package session

import (
	"context"
	"time"

	"github.com/freekieb7/calendar/internal/employee"
)

type Session struct {
	employee      employee.Employee
	authenticated bool
	tokenID       string
	expiresAt     time.Time
}

// Anonymous is the session of a caller without a usable token.
func Anonymous() Session {
	return Session{}
}

func Authenticated(e employee.Employee, tokenID string, expiresAt time.Time) Session {
	return Session{employee: e, authenticated: true, tokenID: tokenID, expiresAt: expiresAt}
}

func (s Session) CurrentEmployee() (employee.Employee, bool) {
	if !s.authenticated {
		return employee.Employee{}, false
	}
	return s.employee, true
}

func (s Session) IsAuthenticated() bool {
	return s.authenticated
}

// TokenID is the id of the token the session was resolved from.
func (s Session) TokenID() string {
	return s.tokenID
}

func (s Session) ExpiresAt() time.Time {
	return s.expiresAt
}

type contextKey struct{}

func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, or an anonymous one.
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(contextKey{}).(Session); ok {
		return s
	}
	return Anonymous()
}

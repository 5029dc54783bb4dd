package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/freekieb7/calendar/internal/employee"
	"github.com/freekieb7/calendar/internal/token"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Resolver struct {
	Logger    *slog.Logger
	Tokens    token.Service
	Employees employee.Store
	// Denylist is optional.
	Denylist Denylist
	Now      func() time.Time

	resolutions metric.Int64Counter
}

func NewResolver(logger *slog.Logger, tokens token.Service, employees employee.Store, denylist Denylist) Resolver {
	resolutions, err := otel.Meter("github.com/freekieb7/calendar/internal/session").Int64Counter("session.resolutions",
		metric.WithDescription("Bearer token resolutions by outcome"))
	if err != nil {
		logger.Warn("session: failed to create resolutions counter", "error", err)
	}

	return Resolver{
		Logger:      logger,
		Tokens:      tokens,
		Employees:   employees,
		Denylist:    denylist,
		Now:         time.Now,
		resolutions: resolutions,
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	scheme, value, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// Resolve derives the session for one request from its Authorization header.
// Every failure yields an anonymous session.
func (r *Resolver) Resolve(ctx context.Context, authorization string) Session {
	raw, ok := BearerToken(authorization)
	if !ok {
		return Anonymous()
	}
	return r.ResolveToken(ctx, raw)
}

func (r *Resolver) ResolveToken(ctx context.Context, raw string) Session {
	claims, err := r.Tokens.Parse(raw, r.now())
	if err != nil {
		r.Logger.Debug("session: token rejected")
		r.record(ctx, "invalid_token")
		return Anonymous()
	}

	if r.Denylist != nil && claims.ID != "" {
		revoked, err := r.Denylist.Contains(ctx, claims.ID)
		if err != nil {
			r.Logger.Error("session: failed to check token denylist", "error", err)
			r.record(ctx, "denylist_error")
			return Anonymous()
		}
		if revoked {
			r.record(ctx, "revoked")
			return Anonymous()
		}
	}

	e, err := r.Employees.GetEmployeeByUsername(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, employee.ErrEmployeeNotFound) {
			r.Logger.Error("session: failed to load employee", "username", claims.Subject, "error", err)
		}
		r.record(ctx, "unknown_employee")
		return Anonymous()
	}
	if !e.Active {
		r.record(ctx, "inactive_employee")
		return Anonymous()
	}

	r.record(ctx, "authenticated")
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return Authenticated(e, claims.ID, expiresAt)
}

func (r *Resolver) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Resolver) record(ctx context.Context, outcome string) {
	if r.resolutions == nil {
		return
	}
	r.resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

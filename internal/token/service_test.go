package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/freekieb7/calendar/internal/token"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

var t0 = time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

func TestService_RoundTrip(t *testing.T) {
	svc := token.NewService(secret, token.DefaultTTL, "calendar")

	signed, err := svc.Issue("alice", t0)
	require.NoError(t, err)

	subject, err := svc.Validate(signed, t0)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	claims, err := svc.Parse(signed, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, t0.Add(token.DefaultTTL), claims.ExpiresAt.Time.UTC())
}

func TestService_ExpiryKeepsMilliseconds(t *testing.T) {
	issuedAt := t0.Add(250 * time.Millisecond)
	svc := token.NewService(secret, 1500*time.Millisecond, "")

	signed, err := svc.Issue("alice", issuedAt)
	require.NoError(t, err)

	claims, err := svc.Parse(signed, issuedAt)
	require.NoError(t, err)
	assert.Equal(t, issuedAt, claims.IssuedAt.Time.UTC())
	assert.Equal(t, issuedAt.Add(1500*time.Millisecond), claims.ExpiresAt.Time.UTC())
}

func TestService_Expiry(t *testing.T) {
	tests := []struct {
		name     string
		issuedAt time.Time
		ttl      time.Duration
		at       time.Duration
		valid    bool
	}{
		{name: "just_issued", issuedAt: t0, ttl: time.Second, at: 0, valid: true},
		{name: "before_expiry", issuedAt: t0, ttl: time.Second, at: 999 * time.Millisecond, valid: true},
		{name: "at_expiry", issuedAt: t0, ttl: time.Second, at: time.Second, valid: true},
		{name: "one_ms_after_ttl", issuedAt: t0, ttl: 1000 * time.Millisecond, at: 1001 * time.Millisecond, valid: false},
		{name: "ttl_plus_one_second", issuedAt: t0, ttl: 24 * time.Hour, at: 24*time.Hour + time.Second, valid: false},
		{name: "half_second_issue_before_expiry", issuedAt: t0.Add(500 * time.Millisecond), ttl: time.Second, at: 600 * time.Millisecond, valid: true},
		{name: "half_second_issue_last_ms", issuedAt: t0.Add(500 * time.Millisecond), ttl: time.Second, at: 999 * time.Millisecond, valid: true},
		{name: "half_second_issue_after_ttl", issuedAt: t0.Add(500 * time.Millisecond), ttl: time.Second, at: 1001 * time.Millisecond, valid: false},
		{name: "sub_second_ttl_just_issued", issuedAt: t0.Add(200 * time.Millisecond), ttl: 500 * time.Millisecond, at: 0, valid: true},
		{name: "sub_second_ttl_before_expiry", issuedAt: t0.Add(200 * time.Millisecond), ttl: 500 * time.Millisecond, at: 499 * time.Millisecond, valid: true},
		{name: "sub_second_ttl_after_expiry", issuedAt: t0.Add(200 * time.Millisecond), ttl: 500 * time.Millisecond, at: 501 * time.Millisecond, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := token.NewService(secret, tt.ttl, "")
			signed, err := svc.Issue("alice", tt.issuedAt)
			require.NoError(t, err)

			subject, err := svc.Validate(signed, tt.issuedAt.Add(tt.at))
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, "alice", subject)
			} else {
				assert.ErrorIs(t, err, token.ErrInvalidToken)
				assert.Empty(t, subject)
			}
		})
	}
}

func TestService_RejectsTampering(t *testing.T) {
	svc := token.NewService(secret, time.Hour, "calendar")
	signed, err := svc.Issue("alice", t0)
	require.NoError(t, err)

	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)

	other := token.NewService(strings.Repeat("x", 32), time.Hour, "calendar")
	forged, err := other.Issue("alice", t0)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    "calendar",
		ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	wrongIssuer, err := token.NewService(secret, time.Hour, "elsewhere").Issue("alice", t0)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "corrupted", token: "corrupted-token"},
		{name: "empty", token: ""},
		{name: "bad_signature", token: parts[0] + "." + parts[1] + ".AAAA"},
		{name: "wrong_secret", token: forged},
		{name: "alg_none", token: unsigned},
		{name: "wrong_issuer", token: wrongIssuer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(tt.token, t0)
			assert.ErrorIs(t, err, token.ErrInvalidToken)
		})
	}
}

func TestService_DefaultTTL(t *testing.T) {
	svc := token.NewService(secret, 0, "")
	assert.Equal(t, token.DefaultTTL, svc.TTL())
}

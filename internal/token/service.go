// Package token issues and validates the signed bearer tokens that carry an
// employee's username between requests. Tokens are stateless: validity is
// decided by signature and expiry alone.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every validation failure. Callers cannot tell an
// expired token from a tampered one.
var ErrInvalidToken = errors.New("invalid token")

const DefaultTTL = 24 * time.Hour

// expiryPrecision is the resolution iat and exp are encoded with. The jwt
// default of whole seconds would expire tokens up to a second early.
const expiryPrecision = time.Microsecond

func init() {
	jwt.TimePrecision = expiryPrecision
}

type Claims struct {
	jwt.RegisteredClaims
}

type Service struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewService(secret string, ttl time.Duration, issuer string) Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return Service{secret: []byte(secret), ttl: ttl, issuer: issuer}
}

func (s Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject valid from now until now+TTL.
func (s Service) Issue(subject string, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the token at instant now and returns its claims.
func (s Service) Parse(tokenString string, now time.Time) (Claims, error) {
	var claims Claims

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		// exp is decoded through a float and may come back one unit short;
		// a token is still valid at exactly now == exp.
		jwt.WithLeeway(expiryPrecision),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Validate returns the subject of a valid token and ErrInvalidToken otherwise.
func (s Service) Validate(tokenString string, now time.Time) (string, error) {
	claims, err := s.Parse(tokenString, now)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

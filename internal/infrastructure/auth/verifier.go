// Package auth verifies the bearer tokens that guard the extraction API.
// Tokens are HMAC-signed JWTs issued by the deployment's identity provider.
package auth

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

var (
	ErrMissingAuthHeader     = errors.New(errors.ErrCodeUnauthorized, "missing authorization header")
	ErrInvalidAuthFormat     = errors.New(errors.ErrCodeUnauthorized, "authorization header must use the Bearer scheme")
	ErrTokenMalformed        = errors.New(errors.ErrCodeUnauthorized, "token is malformed")
	ErrTokenExpired          = errors.New(errors.ErrCodeUnauthorized, "token has expired")
	ErrTokenInvalidSignature = errors.New(errors.ErrCodeUnauthorized, "token signature is invalid")
	ErrTokenInvalidIssuer    = errors.New(errors.ErrCodeUnauthorized, "token issuer is not accepted")
	ErrTokenInvalidAudience  = errors.New(errors.ErrCodeUnauthorized, "token audience is not accepted")
	ErrMissingRole           = errors.New(errors.ErrCodeForbidden, "token lacks the required role")
)

// Config selects how tokens are checked.  Issuer and Audience are only
// enforced when set.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Claims is the verified content of a token.
type Claims struct {
	Subject   string    `json:"sub"`
	Issuer    string    `json:"iss"`
	Audience  []string  `json:"aud"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"exp"`
}

// HasRole reports whether the token carries role.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Verifier checks a raw bearer token.
type Verifier interface {
	VerifyToken(ctx context.Context, rawToken string) (*Claims, error)
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

type hmacVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier returns a Verifier for HS256/384/512 tokens signed with
// cfg.Secret.  Tokens without an expiry are rejected.
func NewVerifier(cfg Config) (Verifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New(errors.ErrCodeValidation, "auth secret is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &hmacVerifier{secret: []byte(cfg.Secret), parser: jwt.NewParser(opts...)}, nil
}

func (v *hmacVerifier) VerifyToken(_ context.Context, rawToken string) (*Claims, error) {
	var tc tokenClaims
	_, err := v.parser.ParseWithClaims(rawToken, &tc, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, mapJWTError(err)
	}

	claims := &Claims{Subject: tc.Subject, Issuer: tc.Issuer, Audience: tc.Audience, Roles: tc.Roles}
	if tc.ExpiresAt != nil {
		claims.ExpiresAt = tc.ExpiresAt.Time
	}
	return claims, nil
}

func mapJWTError(err error) error {
	switch {
	case stderrors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case stderrors.Is(err, jwt.ErrTokenSignatureInvalid), stderrors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenInvalidSignature
	case stderrors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrTokenInvalidIssuer
	case stderrors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrTokenInvalidAudience
	case stderrors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	default:
		return errors.Wrap(err, errors.ErrCodeUnauthorized, "token verification failed")
	}
}

// ExtractBearerToken returns the token of an "Authorization: Bearer" header.
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingAuthHeader
	}
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrInvalidAuthFormat
	}
	return strings.TrimSpace(header[len(prefix):]), nil
}

type contextKey struct{}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// ClaimsFromContext returns the claims stored by WithClaims.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok && c != nil
}

//Personal.AI order the ending

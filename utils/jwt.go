package utils

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is a verified subject as issued by the identity provider.
type Identity struct {
	UserID    string
	SessionID string
	Email     string
	Name      string
}

// IdentityVerifier turns a bearer credential into a verified identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type Claims struct {
	SessionID string `json:"sid"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HS256 tokens signed by the identity provider.
type JWTVerifier struct {
	secret  []byte
	issuer  string
	timeout time.Duration
}

func NewJWTVerifier(secret, issuer string, timeout time.Duration) *JWTVerifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, timeout: timeout}
}

// Verify parses and validates token within the verifier's timeout.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, Unauthenticated("missing credential")
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	type result struct {
		identity *Identity
		err      error
	}
	done := make(chan result, 1)
	go func() {
		identity, err := v.parse(token)
		done <- result{identity, err}
	}()

	select {
	case <-ctx.Done():
		return nil, Unauthenticated("identity verification timed out")
	case res := <-done:
		return res.identity, res.err
	}
}

func (v *JWTVerifier) parse(tokenString string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, Unauthenticated("invalid or expired token")
	}
	if claims.Subject == "" {
		return nil, Unauthenticated("token has no subject")
	}

	return &Identity{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
		Email:     claims.Email,
		Name:      claims.Name,
	}, nil
}

// GenerateJWTToken signs a token the way the identity provider does. Used
// by tests and local tooling.
func GenerateJWTToken(secret, issuer string, identity Identity, ttl time.Duration) (string, error) {
	if identity.UserID == "" {
		return "", errors.New("identity has no user id")
	}
	now := time.Now()
	claims := &Claims{
		SessionID: identity.SessionID,
		Email:     identity.Email,
		Name:      identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ms-event-ledger/internal/address"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("authorization header is missing")
	ErrMalformed    = errors.New("authorization header format must be 'Bearer {token}'")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenTooOld  = errors.New("token exceeds maximum age")
)

// ExtractTokenFromRequest extracts a JWT token from an HTTP request's Authorization header
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingToken
	}

	// Bearer token format: "Bearer {token}"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrMalformed
	}

	return parts[1], nil
}

// SignToken issues a bearer token for the key's own identity. The subject is
// the base58 public key, so the token only verifies against that key.
func SignToken(key ed25519.PrivateKey, ttl time.Duration) (string, error) {
	return signTokenAt(key, time.Now(), ttl)
}

func signTokenAt(key ed25519.PrivateKey, now time.Time, ttl time.Duration) (string, error) {
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return "", errors.New("unexpected public key type")
	}
	identity, err := address.FromPublicKey(pub)
	if err != nil {
		return "", err
	}

	claims := jwt.RegisteredClaims{
		Subject:   identity.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key)
}

// Verifier checks self-signed identity tokens.
type Verifier struct {
	MaxAge time.Duration
	Now    func() time.Time
}

func NewVerifier(maxAge time.Duration) *Verifier {
	return &Verifier{MaxAge: maxAge, Now: time.Now}
}

// Verify returns the identity the token was signed by. Tokens must carry
// exp and iat, and must not be older than MaxAge.
func (v *Verifier) Verify(tokenString string) (address.Pubkey, error) {
	now := v.Now()

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, keyFromSubject,
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return address.Pubkey{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.IssuedAt == nil {
		return address.Pubkey{}, fmt.Errorf("%w: missing iat", ErrInvalidToken)
	}
	if v.MaxAge > 0 && now.Sub(claims.IssuedAt.Time) > v.MaxAge {
		return address.Pubkey{}, ErrTokenTooOld
	}

	return address.ParsePubkey(claims.Subject)
}

func keyFromSubject(token *jwt.Token) (interface{}, error) {
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return nil, err
	}
	identity, err := address.ParsePubkey(sub)
	if err != nil {
		return nil, fmt.Errorf("subject: %w", err)
	}
	return identity.PublicKey(), nil
}

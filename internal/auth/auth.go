package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is what a validated bearer token tells us about the caller.
// The ledger service stores the user's email in the subject claim and,
// depending on the token issuer revision, a numeric user_id claim.
type Identity struct {
	Email  string
	UserID int64
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
	ErrNoSubject    = errors.New("invalid token payload")
)

// Verifier validates externally issued HS256 bearer tokens. The signing
// secret arrives base64-encoded and must be decoded before use, matching
// how the ledger service configures its own signer.
type Verifier struct {
	secret []byte
}

func NewVerifier(base64Secret string) (*Verifier, error) {
	secret, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("auth: decoding JWT secret: %w", err)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("auth: empty JWT secret")
	}
	return &Verifier{secret: secret}, nil
}

// Verify parses and validates a bearer token and extracts the caller
// identity from its claims.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrInvalidToken
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	email, _ := claims["sub"].(string)
	if email == "" {
		return Identity{}, ErrNoSubject
	}

	id := Identity{Email: email}
	if raw, ok := claims["user_id"].(float64); ok {
		id.UserID = int64(raw)
	}
	return id, nil
}

// Mint issues a token signed with the same secret. Tokens are normally
// issued by the ledger service; this exists for tests and the offline
// evaluation harness.
func (v *Verifier) Mint(userID int64, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     email,
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})

	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Package auth resolves session tokens to explicit user identities.
// Every downstream operation receives the resolved user ID as a
// parameter; nothing reads identity from ambient state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords
	// alike, so a login probe cannot distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken rejects missing, malformed, expired or
	// wrongly-signed session tokens.
	ErrInvalidToken = errors.New("invalid session token")
)

// Identity is a verified user identity.
type Identity struct {
	UserID string
	Email  string
}

// Credentials is the stored login record for one user.
type Credentials struct {
	UserID       string
	Email        string
	DisplayName  string
	PasswordHash string
}

// UserSource looks up stored credentials by email.
type UserSource interface {
	UserByEmail(ctx context.Context, email string) (Credentials, error)
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticator verifies passwords and issues HS256 session tokens.
type Authenticator struct {
	users  UserSource
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthenticator(users UserSource, secret []byte, ttl time.Duration) *Authenticator {
	return &Authenticator{
		users:  users,
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Login verifies the password against the stored bcrypt hash and issues a
// signed session token. Unknown emails and bad passwords both return
// ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, Identity, error) {
	creds, err := a.users.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return "", Identity{}, ErrInvalidCredentials
	}

	now := a.now()
	claims := sessionClaims{
		Email: creds.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   creds.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", Identity{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, Identity{UserID: creds.UserID, Email: creds.Email}, nil
}

// Verify parses and validates a session token and returns the identity it
// carries.
func (a *Authenticator) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrInvalidToken
	}
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return a.now() }))
	if err != nil || !token.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// HashPassword produces a bcrypt hash for storage, used when seeding and
// registering users.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type staticUsers map[string]Credentials

func (s staticUsers) UserByEmail(_ context.Context, email string) (Credentials, error) {
	creds, ok := s[email]
	if !ok {
		return Credentials{}, errors.New("no such user")
	}
	return creds, nil
}

func testUsers(t *testing.T) staticUsers {
	t.Helper()
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return staticUsers{
		"ada@example.com": {
			UserID:       "u1",
			Email:        "ada@example.com",
			DisplayName:  "Ada",
			PasswordHash: hash,
		},
	}
}

func TestLoginAndVerifyRoundTrip(t *testing.T) {
	a := NewAuthenticator(testUsers(t), []byte("secret"), time.Hour)

	token, id, err := a.Login(context.Background(), "Ada@Example.com ", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if id.UserID != "u1" || id.Email != "ada@example.com" {
		t.Fatalf("unexpected identity: %+v", id)
	}

	got, err := a.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != id {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, id)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	a := NewAuthenticator(testUsers(t), []byte("secret"), time.Hour)

	cases := []struct{ email, password string }{
		{"ada@example.com", "wrong"},
		{"nobody@example.com", "hunter2"},
		{"", ""},
	}
	for i, tc := range cases {
		if _, _, err := a.Login(context.Background(), tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("case %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	a := NewAuthenticator(testUsers(t), []byte("secret"), time.Hour)
	other := NewAuthenticator(testUsers(t), []byte("different"), time.Hour)

	token, _, err := other.Login(context.Background(), "ada@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	for i, bad := range []string{"", "not-a-token", token} {
		if _, err := a.Verify(bad); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("case %d: expected ErrInvalidToken, got %v", i, err)
		}
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	a := NewAuthenticator(testUsers(t), []byte("secret"), time.Minute)

	token, _, err := a.Login(context.Background(), "ada@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	a.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := a.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestJWTSecret is the shared secret test servers are configured with.
const TestJWTSecret = "integration-test-secret"

// TestUser describes the subject of a signed test token.
type TestUser struct {
	Subject string
	Email   string
	Name    string
	Phone   string
}

type testClaims struct {
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	jwt.RegisteredClaims
}

// SignToken issues an HS256 bearer token for user, valid for an hour.
func SignToken(t testing.TB, secret string, user TestUser) string {
	t.Helper()

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, testClaims{
		Email:       user.Email,
		Name:        user.Name,
		PhoneNumber: user.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return signed
}

// SignExpiredToken issues a token that expired an hour ago.
func SignExpiredToken(t testing.TB, secret string, user TestUser) string {
	t.Helper()

	past := time.Now().Add(-2 * time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, testClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Subject,
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return signed
}

// Authorize sets the bearer token header on req.
func Authorize(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

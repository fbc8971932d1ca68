package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/samirrijal/pinmap/internal/pkg/auth"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	testUser   = "6f1c0b7e-3d2a-4c55-9a61-0f1e2d3c4b5a"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v := auth.NewVerifier(testSecret, "pinmap")

	token, err := v.Issue(testUser, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != testUser {
		t.Errorf("expected subject %s, got %s", testUser, claims.Subject)
	}
}

func TestVerifier_Rejects(t *testing.T) {
	v := auth.NewVerifier(testSecret, "pinmap")
	other := auth.NewVerifier("ffffffffffffffffffffffffffffffff", "pinmap")
	wrongIssuer := auth.NewVerifier(testSecret, "someone-else")

	expired, _ := v.Issue(testUser, -time.Minute)
	foreign, _ := other.Issue(testUser, time.Hour)
	misissued, _ := wrongIssuer.Issue(testUser, time.Hour)
	notUUID, _ := v.Issue("alice", time.Hour)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   testUser,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", auth.ErrMissingToken},
		{"garbage", "not-a-jwt", auth.ErrInvalidToken},
		{"expired", expired, auth.ErrInvalidToken},
		{"wrong secret", foreign, auth.ErrInvalidToken},
		{"wrong issuer", misissued, auth.ErrInvalidToken},
		{"subject not uuid", notUUID, auth.ErrInvalidToken},
		{"alg none", unsigned, auth.ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(tt.token); !errors.Is(err, tt.want) {
				t.Errorf("Verify() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIssue_RequiresUser(t *testing.T) {
	if _, err := auth.NewVerifier(testSecret, "").Issue("", time.Hour); err == nil {
		t.Error("expected error for empty user id")
	}
}

func TestUserIDContext(t *testing.T) {
	ctx := auth.WithUserID(context.Background(), testUser)
	if got := auth.UserIDFromContext(ctx); got != testUser {
		t.Errorf("expected %s, got %s", testUser, got)
	}
	if got := auth.UserIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty user id, got %s", got)
	}
}

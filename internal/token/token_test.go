package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-key-for-unit-tests"

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	svc := NewService(testSecret, time.Hour)

	tokenString, err := svc.Issue("acc-001", "2021-00123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if tokenString == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := svc.Verify(tokenString)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.AccountID != "acc-001" {
		t.Errorf("AccountID = %q, want %q", claims.AccountID, "acc-001")
	}
	if claims.StudentID != "2021-00123" {
		t.Errorf("StudentID = %q, want %q", claims.StudentID, "2021-00123")
	}
}

func TestVerify_SetsOneHourExpiry(t *testing.T) {
	svc := NewService(testSecret, time.Hour)

	tokenString, err := svc.Issue("acc-001", "2021-00123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := svc.Verify(tokenString)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 59*time.Minute || ttl > time.Hour {
		t.Errorf("expiry in %v, want about 1 hour", ttl)
	}
}

// 期限切れはTTLを負にして発行することでシミュレートする
func TestVerify_ExpiredToken(t *testing.T) {
	svc := NewService(testSecret, -time.Minute)

	tokenString, err := svc.Issue("acc-001", "2021-00123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = svc.Verify(tokenString)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify() error = %v, want ErrTokenExpired", err)
	}
}

func TestVerify_MissingToken(t *testing.T) {
	svc := NewService(testSecret, time.Hour)

	_, err := svc.Verify("")
	if !errors.Is(err, ErrTokenMissing) {
		t.Errorf("Verify(\"\") error = %v, want ErrTokenMissing", err)
	}
}

func TestVerify_TamperedSignature(t *testing.T) {
	svc := NewService(testSecret, time.Hour)

	tokenString, err := svc.Issue("acc-001", "2021-00123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// 署名部分の末尾を書き換える
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token format: %q", tokenString)
	}
	tampered := parts[0] + "." + parts[1] + "." + parts[2][:len(parts[2])-2] + "xx"

	_, err = svc.Verify(tampered)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Verify(tampered) error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := NewService(testSecret, time.Hour)
	verifier := NewService("another-secret", time.Hour)

	tokenString, err := issuer.Issue("acc-001", "2021-00123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = verifier.Verify(tokenString)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_MalformedToken(t *testing.T) {
	svc := NewService(testSecret, time.Hour)

	for _, tokenString := range []string{"not-a-jwt", "a.b", "a.b.c.d"} {
		if _, err := svc.Verify(tokenString); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Verify(%q) error = %v, want ErrTokenInvalid", tokenString, err)
		}
	}
}

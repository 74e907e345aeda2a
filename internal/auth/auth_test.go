package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignAndParseToken(t *testing.T) {
	signer := NewSigner("secret", "course-quiz")

	tok, err := signer.SignToken("ada", time.Hour)
	if err != nil {
		t.Fatalf("SignToken failed: %v", err)
	}
	claims, err := signer.ParseToken(tok)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.LearnerID != "ada" || claims.Issuer != "course-quiz" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejectsOtherSecretAndExpired(t *testing.T) {
	signer := NewSigner("secret", "")
	other := NewSigner("other", "")

	tok, err := other.SignToken("ada", time.Hour)
	if err != nil {
		t.Fatalf("SignToken failed: %v", err)
	}
	if _, err := signer.ParseToken(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	expired, err := signer.SignToken("ada", -time.Minute)
	if err != nil {
		t.Fatalf("SignToken failed: %v", err)
	}
	if _, err := signer.ParseToken(expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestWithAuthAttachesLearner(t *testing.T) {
	signer := NewSigner("secret", "")
	tok, _ := signer.SignToken("ada", time.Hour)

	var got string
	handler := signer.WithAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = LearnerFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "ada" {
		t.Fatalf("expected learner ada, got %q", got)
	}

	got = ""
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "" {
		t.Fatalf("expected no learner for bad token, got %q", got)
	}
}

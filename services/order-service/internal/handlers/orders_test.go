package handlers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/farmaciavalero/farmaline/libs/auth"
)

func TestRequesterID(t *testing.T) {
	const secret = "test-secret"
	h := &OrderHandler{jwtSecret: secret}

	token, err := auth.SignHS256(auth.Claims{
		Sub: "user-9",
		Exp: time.Now().Add(time.Hour).Unix(),
	}, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	r := httptest.NewRequest("GET", "/api/v1/orders", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	id, ok := h.requesterID(r)
	if !ok || id != "user-9" {
		t.Fatalf("expected user-9, got %q ok=%v", id, ok)
	}

	r = httptest.NewRequest("GET", "/api/v1/orders", nil)
	if _, ok := h.requesterID(r); ok {
		t.Fatal("missing header must not resolve an identity")
	}

	r = httptest.NewRequest("GET", "/api/v1/orders", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")
	if _, ok := h.requesterID(r); ok {
		t.Fatal("garbage token must not resolve an identity")
	}
}

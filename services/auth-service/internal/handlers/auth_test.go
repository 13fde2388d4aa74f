package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/farmaciavalero/farmaline/libs/auth"
)

func TestPasswordHashing(t *testing.T) {
	password := "farmacia123"
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash == "" {
		t.Fatal("expected non-empty hash")
	}
	if err := verifyPassword(hash, password); err != nil {
		t.Fatalf("verifyPassword should succeed: %v", err)
	}
	if err := verifyPassword(hash, "wrong-pass"); err == nil {
		t.Fatal("verifyPassword should fail for wrong password")
	}
}

func TestNewRefreshToken(t *testing.T) {
	a, err := newRefreshToken()
	if err != nil {
		t.Fatalf("newRefreshToken failed: %v", err)
	}
	b, err := newRefreshToken()
	if err != nil {
		t.Fatalf("newRefreshToken failed: %v", err)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a == b {
		t.Fatal("refresh tokens must be unique")
	}
}

func TestMeRequiresValidToken(t *testing.T) {
	h := NewAuthHandler(nil, nil, nil, nil, Config{JWTSecret: "test-secret"})

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a bearer token", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.Me(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestUpdateProfileRequiresFullName(t *testing.T) {
	const secret = "test-secret"
	h := NewAuthHandler(nil, nil, nil, nil, Config{JWTSecret: secret})
	token, err := auth.SignHS256(auth.Claims{Sub: "user-1", Role: "patient", Exp: 4102444800}, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/auth/me", strings.NewReader(`{"full_name":"  "}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	const secret = "test-secret"
	token, err := auth.SignHS256(auth.Claims{Sub: "user-1", Role: "patient", Exp: 4102444800}, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	claims, err := auth.ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if claims.Sub != "user-1" || claims.Role != "patient" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err := auth.ParseAndVerifyHS256(token, "other-secret"); err == nil {
		t.Fatal("token must not verify under another secret")
	}
}

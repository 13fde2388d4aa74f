package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/farmaciavalero/farmaline/libs/auth"
	"github.com/farmaciavalero/farmaline/services/formulation-service/internal/ocr"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeExtractor struct {
	got     string
	answer  ocr.Extraction
	failErr error
}

func (f *fakeExtractor) Extract(_ context.Context, imageMIME string, _ []byte) (ocr.Extraction, error) {
	f.got = imageMIME
	if f.failErr != nil {
		return ocr.Extraction{}, f.failErr
	}
	return f.answer, nil
}

func bearer(t *testing.T, secret string) string {
	t.Helper()
	token, err := auth.SignHS256(auth.Claims{
		Sub: "user-1",
		Exp: time.Now().Add(time.Hour).Unix(),
	}, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	return "Bearer " + token
}

func TestScan_RequiresAuth(t *testing.T) {
	h := NewFormulationHandler(nil, &fakeExtractor{}, discardLogger(), "secret")
	r := httptest.NewRequest("POST", "/api/v1/formulations/scan", strings.NewReader("img"))
	r.Header.Set("Content-Type", "image/jpeg")
	rec := httptest.NewRecorder()
	h.Scan(rec, r)
	if rec.Code != 401 {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestScan_RequiresImageBody(t *testing.T) {
	h := NewFormulationHandler(nil, &fakeExtractor{}, discardLogger(), "secret")
	r := httptest.NewRequest("POST", "/api/v1/formulations/scan", strings.NewReader("{}"))
	r.Header.Set("Authorization", bearer(t, "secret"))
	r.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Scan(rec, r)
	if rec.Code != 415 {
		t.Fatalf("expected 415, got %d", rec.Code)
	}
}

func TestScan_ExtractorDisabled(t *testing.T) {
	h := NewFormulationHandler(nil, nil, discardLogger(), "secret")
	r := httptest.NewRequest("POST", "/api/v1/formulations/scan", strings.NewReader("img"))
	r.Header.Set("Authorization", bearer(t, "secret"))
	r.Header.Set("Content-Type", "image/jpeg")
	rec := httptest.NewRecorder()
	h.Scan(rec, r)
	if rec.Code != 501 {
		t.Fatalf("expected 501, got %d", rec.Code)
	}
}

func TestScan_PassesContentType(t *testing.T) {
	ex := &fakeExtractor{answer: ocr.Extraction{PatientName: "Ana Ruiz"}}
	h := NewFormulationHandler(nil, ex, discardLogger(), "secret")
	r := httptest.NewRequest("POST", "/api/v1/formulations/scan", strings.NewReader("fake-bytes"))
	r.Header.Set("Authorization", bearer(t, "secret"))
	r.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	h.Scan(rec, r)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ex.got != "image/png" {
		t.Fatalf("extractor saw content type %q", ex.got)
	}
	if !strings.Contains(rec.Body.String(), "Ana Ruiz") {
		t.Fatalf("extraction missing from response: %s", rec.Body.String())
	}
}

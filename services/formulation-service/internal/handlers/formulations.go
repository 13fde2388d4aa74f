package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/farmaciavalero/farmaline/libs/auth"
	"github.com/farmaciavalero/farmaline/services/formulation-service/internal/model"
	"github.com/farmaciavalero/farmaline/services/formulation-service/internal/ocr"
	"github.com/farmaciavalero/farmaline/services/formulation-service/internal/storage"
)

const maxImageBytes = 8 << 20

// Extractor is the OCR backend. Nil means scanning is disabled and only
// manual entry works.
type Extractor interface {
	Extract(ctx context.Context, imageMIME string, image []byte) (ocr.Extraction, error)
}

type FormulationHandler struct {
	repo      *storage.FormulationRepository
	extractor Extractor
	logger    *slog.Logger
	jwtSecret string
}

func NewFormulationHandler(repo *storage.FormulationRepository, extractor Extractor, logger *slog.Logger, jwtSecret string) *FormulationHandler {
	return &FormulationHandler{repo: repo, extractor: extractor, logger: logger, jwtSecret: jwtSecret}
}

type createFormulationRequest struct {
	PatientName            string                  `json:"patient_name"`
	PatientDNI             string                  `json:"patient_dni"`
	DoctorName             string                  `json:"doctor_name"`
	DoctorCollegiateNumber string                  `json:"doctor_collegiate_number"`
	Composition            []model.CompositionItem `json:"composition"`
	Notes                  string                  `json:"notes"`
}

type formulationResponse struct {
	FormulationID          string                  `json:"formulation_id"`
	PatientName            string                  `json:"patient_name"`
	PatientDNI             string                  `json:"patient_dni,omitempty"`
	DoctorName             string                  `json:"doctor_name"`
	DoctorCollegiateNumber string                  `json:"doctor_collegiate_number,omitempty"`
	Composition            []model.CompositionItem `json:"composition"`
	Notes                  string                  `json:"notes,omitempty"`
	CreatedAt              string                  `json:"created_at"`
}

func (h *FormulationHandler) requesterID(r *http.Request) (string, bool) {
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return "", false
	}
	claims, err := auth.ParseAndVerifyHS256(token, h.jwtSecret)
	if err != nil || claims.Sub == "" {
		return "", false
	}
	return claims.Sub, true
}

func (h *FormulationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := h.requesterID(r)
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req createFormulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.PatientName = strings.TrimSpace(req.PatientName)
	req.DoctorName = strings.TrimSpace(req.DoctorName)
	if req.PatientName == "" || req.DoctorName == "" {
		http.Error(w, "patient_name and doctor_name required", http.StatusBadRequest)
		return
	}

	f := &model.Formulation{
		ID:                     uuid.NewString(),
		UserID:                 userID,
		PatientName:            req.PatientName,
		PatientDNI:             strings.TrimSpace(req.PatientDNI),
		DoctorName:             req.DoctorName,
		DoctorCollegiateNumber: strings.TrimSpace(req.DoctorCollegiateNumber),
		Composition:            req.Composition,
		Notes:                  strings.TrimSpace(req.Notes),
		CreatedAt:              time.Now().UTC(),
	}

	if err := h.repo.Create(r.Context(), f); err != nil {
		switch {
		case errors.Is(err, model.ErrEmptyComposition),
			errors.Is(err, model.ErrInvalidComposition),
			errors.Is(err, model.ErrCompositionTooLong):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			h.logger.Error("formulation create failed", "err", err)
			http.Error(w, "failed to save formulation", http.StatusServiceUnavailable)
		}
		return
	}

	h.logger.Info("formulation requested", "formulation_id", f.ID, "lines", len(f.Composition))
	writeJSON(w, http.StatusCreated, toResponse(*f))
}

func (h *FormulationHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := h.requesterID(r)
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	formulations, err := h.repo.ListByUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("formulation list failed", "err", err)
		http.Error(w, "failed to list formulations", http.StatusServiceUnavailable)
		return
	}

	items := make([]formulationResponse, 0, len(formulations))
	for _, f := range formulations {
		items = append(items, toResponse(f))
	}
	writeJSON(w, http.StatusOK, items)
}

// Scan runs OCR over an uploaded prescription image and returns the
// extracted fields for the client to review before submitting.
func (h *FormulationHandler) Scan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.requesterID(r); !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	if h.extractor == nil {
		http.Error(w, "prescription scanning not enabled", http.StatusNotImplemented)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		http.Error(w, "an image body is required", http.StatusUnsupportedMediaType)
		return
	}

	image, err := io.ReadAll(io.LimitReader(r.Body, maxImageBytes+1))
	if err != nil {
		http.Error(w, "failed to read image", http.StatusBadRequest)
		return
	}
	if len(image) == 0 {
		http.Error(w, "empty image body", http.StatusBadRequest)
		return
	}
	if len(image) > maxImageBytes {
		http.Error(w, "image too large", http.StatusRequestEntityTooLarge)
		return
	}

	extraction, err := h.extractor.Extract(r.Context(), contentType, image)
	if err != nil {
		h.logger.Error("prescription scan failed", "err", err)
		http.Error(w, "scan failed, try a clearer photo", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, extraction)
}

func toResponse(f model.Formulation) formulationResponse {
	return formulationResponse{
		FormulationID:          f.ID,
		PatientName:            f.PatientName,
		PatientDNI:             f.PatientDNI,
		DoctorName:             f.DoctorName,
		DoctorCollegiateNumber: f.DoctorCollegiateNumber,
		Composition:            f.Composition,
		Notes:                  f.Notes,
		CreatedAt:              f.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

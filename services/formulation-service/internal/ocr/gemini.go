// Package ocr extracts structured prescription data from photos using
// the Gemini API.
package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/farmaciavalero/farmaline/services/formulation-service/internal/model"
)

const extractionPrompt = "Analiza esta receta médica. Extrae el nombre del paciente, " +
	"su DNI/NIF, el nombre completo del médico, su número de colegiado y la " +
	"composición detallada de la fórmula magistral como lista ordenada de " +
	"{ingredient, amount}. Responde únicamente con JSON con las claves " +
	"patient_name, patient_dni, doctor_name, doctor_collegiate_number, composition."

// Extraction is the structured result pulled from a prescription image.
type Extraction struct {
	PatientName            string                  `json:"patient_name"`
	PatientDNI             string                  `json:"patient_dni"`
	DoctorName             string                  `json:"doctor_name"`
	DoctorCollegiateNumber string                  `json:"doctor_collegiate_number"`
	Composition            []model.CompositionItem `json:"composition"`
}

type GeminiExtractor struct {
	client  *genai.Client
	modelID string
}

func NewGeminiExtractor(ctx context.Context, apiKey, modelID string) (*GeminiExtractor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ocr: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("ocr: failed to create gemini client: %w", err)
	}
	return &GeminiExtractor{client: client, modelID: modelID}, nil
}

func (e *GeminiExtractor) Close() error {
	return e.client.Close()
}

// Extract sends the prescription image to Gemini and parses the JSON
// answer into an Extraction.
func (e *GeminiExtractor) Extract(ctx context.Context, imageMIME string, image []byte) (Extraction, error) {
	format := strings.TrimPrefix(imageMIME, "image/")
	if format == imageMIME || format == "" {
		return Extraction{}, fmt.Errorf("ocr: unsupported content type %q", imageMIME)
	}

	gm := e.client.GenerativeModel(e.modelID)
	gm.ResponseMIMEType = "application/json"
	gm.SetTemperature(0)

	resp, err := gm.GenerateContent(ctx,
		genai.ImageData(format, image),
		genai.Text(extractionPrompt),
	)
	if err != nil {
		return Extraction{}, fmt.Errorf("ocr: gemini request failed: %w", err)
	}

	text, err := candidateText(resp)
	if err != nil {
		return Extraction{}, err
	}
	return ParseExtraction(text)
}

// ParseExtraction decodes the model's JSON answer and trims every field.
// Composition validation happens at the store boundary, not here; a
// partially readable prescription still helps the pharmacist.
func ParseExtraction(raw string) (Extraction, error) {
	var ext Extraction
	if err := json.Unmarshal([]byte(raw), &ext); err != nil {
		return Extraction{}, fmt.Errorf("ocr: unparseable model answer: %w", err)
	}
	ext.PatientName = strings.TrimSpace(ext.PatientName)
	ext.PatientDNI = strings.TrimSpace(ext.PatientDNI)
	ext.DoctorName = strings.TrimSpace(ext.DoctorName)
	ext.DoctorCollegiateNumber = strings.TrimSpace(ext.DoctorCollegiateNumber)
	for i := range ext.Composition {
		ext.Composition[i].Ingredient = strings.TrimSpace(ext.Composition[i].Ingredient)
		ext.Composition[i].Amount = strings.TrimSpace(ext.Composition[i].Amount)
	}
	return ext, nil
}

func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", errors.New("ocr: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("ocr: gemini returned empty content")
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String()), nil
}

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/farmaciavalero/farmaline/libs/db"
	"github.com/farmaciavalero/farmaline/libs/outbox"
	"github.com/farmaciavalero/farmaline/services/formulation-service/internal/model"
)

const EventFormulationRequested = "formulations.request.created.v1"

type FormulationRepository struct {
	pool   *db.Pool
	events *outbox.Repository
}

func NewFormulationRepository(pool *db.Pool, events *outbox.Repository) *FormulationRepository {
	return &FormulationRepository{pool: pool, events: events}
}

// Create validates the composition, then persists the request and its
// event in one transaction. The composition column is jsonb but always
// holds the typed {ingredient, amount} sequence.
func (r *FormulationRepository) Create(ctx context.Context, f *model.Formulation) error {
	composition, err := model.ValidateComposition(f.Composition)
	if err != nil {
		return err
	}
	f.Composition = composition

	compositionJSON, err := json.Marshal(composition)
	if err != nil {
		return fmt.Errorf("marshal composition: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO formulations
			(id, user_id, patient_name, patient_dni, doctor_name, doctor_collegiate_number, composition, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, f.ID, f.UserID, f.PatientName, f.PatientDNI, f.DoctorName,
		f.DoctorCollegiateNumber, compositionJSON, f.Notes, f.CreatedAt)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"formulation_id": f.ID,
		"patient_name":   f.PatientName,
		"doctor_name":    f.DoctorName,
		"composition":    composition,
		"created_at":     f.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := r.events.Insert(ctx, tx, outbox.Event{
		AggregateType: "formulation",
		AggregateID:   f.ID,
		EventType:     EventFormulationRequested,
		Payload:       payload,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *FormulationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Formulation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, patient_name, patient_dni, doctor_name,
			doctor_collegiate_number, composition, COALESCE(notes, ''), created_at
		FROM formulations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Formulation
	for rows.Next() {
		var f model.Formulation
		var compositionJSON []byte
		if err := rows.Scan(&f.ID, &f.UserID, &f.PatientName, &f.PatientDNI,
			&f.DoctorName, &f.DoctorCollegiateNumber, &compositionJSON,
			&f.Notes, &f.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(compositionJSON, &f.Composition); err != nil {
			return nil, fmt.Errorf("unmarshal composition for %s: %w", f.ID, err)
		}
		out = append(out, f)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

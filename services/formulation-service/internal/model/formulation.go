package model

import (
	"errors"
	"strings"
	"time"
)

const maxCompositionItems = 100

var (
	ErrEmptyComposition   = errors.New("composition must have at least one item")
	ErrInvalidComposition = errors.New("invalid composition item")
	ErrCompositionTooLong = errors.New("composition has too many items")
)

// CompositionItem is one line of a master formulation. Order matters;
// the sequence is stored as given.
type CompositionItem struct {
	Ingredient string `json:"ingredient"`
	Amount     string `json:"amount"`
}

// ValidateComposition normalizes and checks a composition before it is
// persisted. Untyped or blank lines never reach the store.
func ValidateComposition(items []CompositionItem) ([]CompositionItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyComposition
	}
	if len(items) > maxCompositionItems {
		return nil, ErrCompositionTooLong
	}
	out := make([]CompositionItem, 0, len(items))
	for _, item := range items {
		item.Ingredient = strings.TrimSpace(item.Ingredient)
		item.Amount = strings.TrimSpace(item.Amount)
		if item.Ingredient == "" || item.Amount == "" {
			return nil, ErrInvalidComposition
		}
		out = append(out, item)
	}
	return out, nil
}

type Formulation struct {
	ID                     string
	UserID                 string
	PatientName            string
	PatientDNI             string
	DoctorName             string
	DoctorCollegiateNumber string
	Composition            []CompositionItem
	Notes                  string
	CreatedAt              time.Time
}

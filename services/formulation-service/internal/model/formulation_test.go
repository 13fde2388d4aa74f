package model

import (
	"errors"
	"testing"
)

func TestValidateComposition(t *testing.T) {
	items, err := ValidateComposition([]CompositionItem{
		{Ingredient: " Minoxidil ", Amount: "5%"},
		{Ingredient: "Etanol 96º", Amount: "csp 100 ml"},
	})
	if err != nil {
		t.Fatalf("ValidateComposition failed: %v", err)
	}
	if items[0].Ingredient != "Minoxidil" {
		t.Fatalf("expected trimmed ingredient, got %q", items[0].Ingredient)
	}
	if items[1].Amount != "csp 100 ml" {
		t.Fatalf("unexpected amount: %q", items[1].Amount)
	}
}

func TestValidateComposition_PreservesOrder(t *testing.T) {
	in := []CompositionItem{
		{Ingredient: "B", Amount: "2 g"},
		{Ingredient: "A", Amount: "1 g"},
		{Ingredient: "C", Amount: "3 g"},
	}
	out, err := ValidateComposition(in)
	if err != nil {
		t.Fatalf("ValidateComposition failed: %v", err)
	}
	for i := range in {
		if out[i].Ingredient != in[i].Ingredient {
			t.Fatalf("order changed at %d: got %q", i, out[i].Ingredient)
		}
	}
}

func TestValidateComposition_Rejects(t *testing.T) {
	cases := []struct {
		name  string
		items []CompositionItem
		want  error
	}{
		{"empty", nil, ErrEmptyComposition},
		{"blank ingredient", []CompositionItem{{Ingredient: "  ", Amount: "1 g"}}, ErrInvalidComposition},
		{"blank amount", []CompositionItem{{Ingredient: "Urea", Amount: ""}}, ErrInvalidComposition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ValidateComposition(tc.items); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateComposition_TooLong(t *testing.T) {
	items := make([]CompositionItem, maxCompositionItems+1)
	for i := range items {
		items[i] = CompositionItem{Ingredient: "x", Amount: "1"}
	}
	if _, err := ValidateComposition(items); !errors.Is(err, ErrCompositionTooLong) {
		t.Fatalf("expected ErrCompositionTooLong, got %v", err)
	}
}

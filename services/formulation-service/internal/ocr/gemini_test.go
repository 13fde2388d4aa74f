package ocr

import "testing"

func TestParseExtraction(t *testing.T) {
	raw := `{
		"patient_name": " Ana Ruiz ",
		"patient_dni": "12345678Z",
		"doctor_name": "Dr. López",
		"doctor_collegiate_number": "282812345",
		"composition": [
			{"ingredient": " Minoxidil ", "amount": "5% "},
			{"ingredient": "Etanol 96º", "amount": "csp 100 ml"}
		]
	}`
	ext, err := ParseExtraction(raw)
	if err != nil {
		t.Fatalf("ParseExtraction failed: %v", err)
	}
	if ext.PatientName != "Ana Ruiz" {
		t.Fatalf("expected trimmed patient name, got %q", ext.PatientName)
	}
	if ext.DoctorCollegiateNumber != "282812345" {
		t.Fatalf("unexpected collegiate number: %q", ext.DoctorCollegiateNumber)
	}
	if len(ext.Composition) != 2 || ext.Composition[0].Ingredient != "Minoxidil" {
		t.Fatalf("unexpected composition: %+v", ext.Composition)
	}
}

func TestParseExtraction_PartialAnswer(t *testing.T) {
	ext, err := ParseExtraction(`{"patient_name": "Ana Ruiz"}`)
	if err != nil {
		t.Fatalf("partial answers should parse: %v", err)
	}
	if ext.PatientName != "Ana Ruiz" || len(ext.Composition) != 0 {
		t.Fatalf("unexpected extraction: %+v", ext)
	}
}

func TestParseExtraction_Garbage(t *testing.T) {
	if _, err := ParseExtraction("the prescription says..."); err == nil {
		t.Fatal("non-JSON answer must fail")
	}
}

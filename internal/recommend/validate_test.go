package recommend

import (
	"encoding/json"
	"testing"

	"tagrec-backend/internal/taxonomy"
)

func testModel(t *testing.T) *taxonomy.Model {
	t.Helper()
	model, err := taxonomy.Build(taxonomy.Extract{Sheets: []taxonomy.Sheet{{
		Name: "Billing",
		Rows: [][]string{
			{"Refund", "", "Customer requests money back"},
			{"Refund", "Partial", "Partial refund requested"},
			{"Invoice", "", "Invoice questions"},
		},
	}}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return model
}

func TestValidateAcceptsKnownTag(t *testing.T) {
	model := testModel(t)
	raw := json.RawMessage(`{
		"tagId": "billing/refund/partial",
		"confidence": "high",
		"reasoning": "Customer asks for part of the charge back.",
		"references": ["billing/refund", "billing/invoice"]
	}`)

	rec, err := Validate(model, raw)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if rec.TagID != "billing/refund/partial" {
		t.Fatalf("tagId = %q", rec.TagID)
	}
	if rec.Confidence != ConfidenceHigh {
		t.Fatalf("confidence = %q", rec.Confidence)
	}
	if len(rec.References) != 2 {
		t.Fatalf("references = %v", rec.References)
	}
	if len(rec.TagPath) != 2 || rec.TagPath[0] != "Refund" {
		t.Fatalf("tagPath = %v", rec.TagPath)
	}
}

func TestValidateHallucinatedTagBecomesNoMatch(t *testing.T) {
	model := testModel(t)
	raw := json.RawMessage(`{
		"tagId": "billing/made-up-tag",
		"confidence": "high",
		"reasoning": "Looks like an invented category."
	}`)

	rec, err := Validate(model, raw)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !rec.NoMatch() {
		t.Fatalf("expected no-match, got tagId %q", rec.TagID)
	}
	if rec.Confidence != ConfidenceLow {
		t.Fatalf("confidence = %q, want low", rec.Confidence)
	}
	if rec.Reasoning != "Looks like an invented category." {
		t.Fatalf("reasoning lost: %q", rec.Reasoning)
	}
}

func TestValidateCoercesUnknownConfidence(t *testing.T) {
	model := testModel(t)
	raw := json.RawMessage(`{
		"tagId": "billing/invoice",
		"confidence": "urgent",
		"reasoning": "Invoice dispute."
	}`)

	rec, err := Validate(model, raw)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if rec.Confidence != ConfidenceLow {
		t.Fatalf("confidence = %q, want low", rec.Confidence)
	}
	if rec.TagID != "billing/invoice" {
		t.Fatalf("tagId = %q", rec.TagID)
	}
}

func TestValidateFiltersUnknownReferences(t *testing.T) {
	model := testModel(t)
	raw := json.RawMessage(`{
		"tagId": "billing/refund",
		"confidence": "medium",
		"reasoning": "Refund request.",
		"references": ["billing/refund", "shipping/lost", "billing/nonexistent"]
	}`)

	rec, err := Validate(model, raw)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(rec.References) != 1 || rec.References[0] != "billing/refund" {
		t.Fatalf("references = %v", rec.References)
	}
}

func TestValidateExplicitNoMatch(t *testing.T) {
	model := testModel(t)
	for _, sentinel := range []string{"", "no-match", "NONE"} {
		raw, _ := json.Marshal(map[string]any{
			"tagId":      sentinel,
			"confidence": "medium",
			"reasoning":  "Nothing in the taxonomy fits.",
		})
		rec, err := Validate(model, raw)
		if err != nil {
			t.Fatalf("Validate(%q): %v", sentinel, err)
		}
		if !rec.NoMatch() {
			t.Fatalf("Validate(%q): expected no-match", sentinel)
		}
		if rec.Confidence != ConfidenceMedium {
			t.Fatalf("Validate(%q): confidence = %q", sentinel, rec.Confidence)
		}
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	model := testModel(t)
	cases := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "I think the tag should be Refund"},
		{name: "wrong shape", raw: `{"answer": 42}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(model, json.RawMessage(tc.raw))
			if !IsInvalidRecommendation(err) {
				t.Fatalf("expected InvalidRecommendationError, got %v", err)
			}
		})
	}
}

package recommend

import (
	"encoding/json"
	"strings"

	"tagrec-backend/internal/taxonomy"
)

// wirePayload is the shape the backend is asked to produce. Fields are
// validated and coerced rather than trusted.
type wirePayload struct {
	TagID      string   `json:"tagId"`
	Confidence string   `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	References []string `json:"references"`
}

// Validate turns raw backend output into a Recommendation, enforcing that
// every id it mentions exists in the taxonomy. A tag id the model invented
// downgrades the result to a low-confidence no-match instead of failing;
// unknown references are dropped silently. Output that cannot be parsed at
// all is an InvalidRecommendationError.
func Validate(model *taxonomy.Model, raw json.RawMessage) (Recommendation, error) {
	var payload wirePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Recommendation{}, &InvalidRecommendationError{
			Reason: "backend output is not valid JSON",
			Raw:    clipRaw(raw),
		}
	}
	if payload.TagID == "" && payload.Confidence == "" && payload.Reasoning == "" {
		return Recommendation{}, &InvalidRecommendationError{
			Reason: "backend output has none of the expected fields",
			Raw:    clipRaw(raw),
		}
	}

	rec := Recommendation{
		Confidence: ParseConfidence(payload.Confidence),
		Reasoning:  strings.TrimSpace(payload.Reasoning),
	}

	tagID := normalize(payload.TagID)
	switch tagID {
	case "", "no-match", "none", "null":
		// Explicit no-match from the model.
	default:
		if model.Contains(tagID) {
			rec.TagID = tagID
			rec.TagPath = model.Path(tagID)
		} else {
			// Hallucinated id: keep the reasoning but do not stand
			// behind a tag that does not exist.
			rec.Confidence = ConfidenceLow
		}
	}

	for _, ref := range payload.References {
		ref = normalize(ref)
		if model.Contains(ref) {
			rec.References = append(rec.References, ref)
		}
	}

	return rec, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func clipRaw(raw json.RawMessage) string {
	s := string(raw)
	if len(s) > 500 {
		return s[:500]
	}
	return s
}

package recommend

import "tagrec-backend/internal/llm"

// Confidence is the model's self-reported certainty in a recommendation.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ParseConfidence normalizes a backend-reported confidence value. Anything
// outside the known set collapses to low rather than failing the whole
// recommendation.
func ParseConfidence(raw string) Confidence {
	switch Confidence(normalize(raw)) {
	case ConfidenceLow:
		return ConfidenceLow
	case ConfidenceMedium:
		return ConfidenceMedium
	case ConfidenceHigh:
		return ConfidenceHigh
	default:
		return ConfidenceLow
	}
}

// Scenario is one support case submitted for tagging: free text plus any
// attached files forwarded opaquely to the backend.
type Scenario struct {
	Text        string
	Attachments []llm.Attachment
}

// Recommendation is the validated outcome of a recommendation call. A
// no-match outcome carries an empty TagID.
type Recommendation struct {
	TagID      string     `json:"tagId"`
	TagPath    []string   `json:"tagPath,omitempty"`
	Confidence Confidence `json:"confidence"`
	Reasoning  string     `json:"reasoning"`
	References []string   `json:"references,omitempty"`
	Model      string     `json:"model,omitempty"`
}

// NoMatch reports whether the recommendation found no applicable tag.
func (r Recommendation) NoMatch() bool {
	return r.TagID == ""
}

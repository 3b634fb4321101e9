package recommend

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyScenario      = errors.New("scenario text is empty")
	ErrNoTaxonomy         = errors.New("no taxonomy loaded for session")
	ErrBackendUnavailable = errors.New("recommendation backend unavailable")
)

const (
	ErrorCodeValidation         = "VALIDATION_ERROR"
	ErrorCodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrorCodeContentRejected    = "CONTENT_REJECTED"
	ErrorCodeInvalidOutput      = "INVALID_RECOMMENDATION"
	ErrorCodeInternal           = "INTERNAL_ERROR"
)

// InvalidRecommendationError reports backend output that could not be
// interpreted as a recommendation even after coercion. Raw carries a
// truncated copy of the offending payload for diagnostics.
type InvalidRecommendationError struct {
	Reason string
	Raw    string
}

func (e *InvalidRecommendationError) Error() string {
	return fmt.Sprintf("invalid recommendation: %s", e.Reason)
}

// IsInvalidRecommendation reports whether err is an InvalidRecommendationError.
func IsInvalidRecommendation(err error) bool {
	var ie *InvalidRecommendationError
	return errors.As(err, &ie)
}

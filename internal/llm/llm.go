package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Client abstracts generative backends that turn a scenario prompt into a
// structured tag recommendation.
type Client interface {
	Recommend(ctx context.Context, input RecommendInput) (json.RawMessage, error)
	Model() string
}

// RecommendInput captures everything a backend needs for one recommendation
// call.
type RecommendInput struct {
	SystemPrompt string
	UserPrompt   string
	Attachments  []Attachment
}

// Attachment is an opaque file forwarded to the backend alongside the
// scenario text. Data holds raw bytes; providers handle their own encoding.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// ErrRateLimited is returned when the backend refuses the call because of
// quota or throttling. Callers may retry after a delay.
var ErrRateLimited = errors.New("LLM rate limited")

// ErrEmptyResponse is returned when the backend answers without any usable
// text content.
var ErrEmptyResponse = errors.New("LLM returned empty response")

// RejectedError reports that the backend declined to process the request,
// typically on safety grounds. Rejections are terminal: retrying the same
// request will not help.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("LLM rejected request: %s", e.Reason)
}

// IsRejected reports whether err is a RejectedError.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

package recommend

import (
	"context"
	"strings"
	"time"

	"tagrec-backend/internal/llm"
	"tagrec-backend/internal/shared/metrics"
	"tagrec-backend/internal/shared/telemetry"
	"tagrec-backend/internal/taxonomy"
)

// TextExtractor pulls plain text out of document attachments so it can ride
// along in the prompt. Handled reports whether the MIME type is one the
// extractor understands.
type TextExtractor interface {
	Extract(mimeType string, data []byte) (text string, handled bool)
}

// Service contains business logic for recommendations.
type Service struct {
	Invoker      *Invoker
	Extractor    TextExtractor
	PromptBudget int
}

// Recommend compiles the scenario against the session taxonomy, runs the
// backend, and validates the output into a Recommendation.
func (s *Service) Recommend(ctx context.Context, model *taxonomy.Model, scenario Scenario) (Recommendation, error) {
	if model == nil || model.NodeCount == 0 {
		return Recommendation{}, ErrNoTaxonomy
	}
	if strings.TrimSpace(scenario.Text) == "" {
		return Recommendation{}, ErrEmptyScenario
	}

	metrics.IncRecommendationStarted()
	started := time.Now()

	forwarded, extractedText := s.splitAttachments(scenario.Attachments)
	prompt := Compile(model, scenario, extractedText, s.PromptBudget)
	if prompt.Truncated {
		telemetry.Info("taxonomy outline truncated", map[string]any{
			"node_count": model.NodeCount,
			"budget":     s.promptBudget(),
		})
	}

	raw, modelName, err := s.Invoker.Invoke(ctx, llm.RecommendInput{
		SystemPrompt: prompt.System,
		UserPrompt:   prompt.User,
		Attachments:  forwarded,
	})
	if err != nil {
		if llm.IsRejected(err) {
			metrics.IncRecommendationRejected()
		} else {
			metrics.IncRecommendationFailed()
		}
		telemetry.Error("recommendation failed", map[string]any{
			"error": sanitizeError(err),
		})
		return Recommendation{}, err
	}

	rec, err := Validate(model, raw)
	if err != nil {
		metrics.IncRecommendationFailed()
		telemetry.Error("recommendation output invalid", map[string]any{
			"model": modelName,
			"error": sanitizeError(err),
		})
		return Recommendation{}, err
	}
	rec.Model = modelName

	metrics.IncRecommendationCompleted()
	metrics.ObserveRecommendationDurationMs(float64(time.Since(started).Milliseconds()))
	if rec.NoMatch() {
		metrics.IncRecommendationNoMatch()
	}
	telemetry.Info("recommendation completed", map[string]any{
		"model":      modelName,
		"tag_id":     rec.TagID,
		"confidence": string(rec.Confidence),
		"no_match":   rec.NoMatch(),
		"elapsed_ms": time.Since(started).Milliseconds(),
	})
	return rec, nil
}

// splitAttachments extracts text from document attachments and keeps the
// rest for inline forwarding. Documents whose text was extracted are not
// forwarded twice.
func (s *Service) splitAttachments(attachments []llm.Attachment) ([]llm.Attachment, string) {
	if len(attachments) == 0 {
		return nil, ""
	}
	var forwarded []llm.Attachment
	var texts []string
	for _, att := range attachments {
		if s.Extractor != nil {
			if text, handled := s.Extractor.Extract(att.MIMEType, att.Data); handled {
				if strings.TrimSpace(text) != "" {
					texts = append(texts, text)
				}
				continue
			}
		}
		forwarded = append(forwarded, att)
	}
	return forwarded, strings.Join(texts, "\n\n")
}

func (s *Service) promptBudget() int {
	if s.PromptBudget > 0 {
		return s.PromptBudget
	}
	return DefaultPromptBudget
}

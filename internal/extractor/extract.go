package extractor

import (
	"context"

	"sales-insights-go/internal/llm"
	"sales-insights-go/internal/logger"
)

// Runner performs single-attempt field extractions. Retry policy lives
// with the caller, which can see rate-limit errors through Extraction.Err.
type Runner struct {
	client      llm.Client
	log         *logger.Logger
	temperature float64
	maxTokens   int
}

func NewRunner(client llm.Client, log *logger.Logger, temperature float64, maxTokens int) *Runner {
	return &Runner{client: client, log: log, temperature: temperature, maxTokens: maxTokens}
}

// Extract issues one completion call for the field. The returned record
// is StateSucceeded or StateFailedSoft; it never panics and never
// returns a partial output on error.
func (r *Runner) Extract(ctx context.Context, field Field, transcript, dep string) Extraction {
	ext := Extraction{Field: field, State: StateInFlight}

	resp, err := r.client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: field.System,
		UserPrompt:   field.BuildPrompt(transcript, dep),
		MaxTokens:    r.maxTokens,
		Temperature:  r.temperature,
	})
	if err != nil {
		ext.State = StateFailedSoft
		ext.Err = err
		if r.log != nil {
			r.log.WithComponent("extractor").
				WithField("field", field.Key).
				WithError(err).
				Warn("field extraction failed")
		}
		return ext
	}

	ext.State = StateSucceeded
	ext.Output = resp.Content
	ext.TokensUsed = resp.TokensUsed
	if r.log != nil {
		r.log.WithComponent("extractor").
			WithField("field", field.Key).
			WithField("tokens", resp.TokensUsed).
			Debug("field extracted")
	}
	return ext
}

package sequencer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"sales-insights-go/internal/chunker"
	"sales-insights-go/internal/config"
	"sales-insights-go/internal/extractor"
	"sales-insights-go/internal/llm"
	"sales-insights-go/internal/logger"
	"sales-insights-go/internal/types"
)

// Sequencer drives the field pipeline over a normalized transcript:
// strategy choice (single pass, chunked, sliding window), fixed field
// order with dependency carry-forward, pacing between calls, bounded
// retry on rate limits, and score reduction. Field failures are soft;
// only cancellation aborts a run.
type Sequencer struct {
	runner *extractor.Runner
	cfg    config.PipelineConfig
	log    *logger.Logger

	// test seams
	sleep func(ctx context.Context, d time.Duration) error
	timer backoff.Timer
}

func New(runner *extractor.Runner, cfg config.PipelineConfig, log *logger.Logger) *Sequencer {
	return &Sequencer{
		runner: runner,
		cfg:    cfg,
		log:    log,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run analyzes a transcript that fits the regular strategies. Inputs
// over the single-pass limit are split at line boundaries and rejoined
// with part markers; either way each field costs exactly one call.
func (s *Sequencer) Run(ctx context.Context, text, callType string) (*types.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}

	doc := text
	if len(text) > s.cfg.SinglePassLimit {
		chunks := chunker.Split(text, s.cfg.ChunkMaxLen)
		doc = chunker.Join(chunks)
		if s.log != nil {
			s.log.WithComponent("sequencer").
				WithField("chars", len(text)).
				WithField("chunks", len(chunks)).
				Info("transcript over single-pass limit, running chunked")
		}
	}

	result, _, err := s.runPipeline(ctx, doc, callType)
	return result, err
}

// RunWindowed analyzes an extreme transcript window by window and
// reduces the per-window reports into one. Meant for inputs too large
// for even the chunked strategy to prompt coherently.
func (s *Sequencer) RunWindowed(ctx context.Context, text, callType string) (*types.AnalysisResult, error) {
	windows := slidingWindows(text, s.cfg.WindowSize, s.cfg.WindowOverlap)
	if len(windows) <= 1 {
		return s.Run(ctx, text, callType)
	}
	if s.log != nil {
		s.log.WithComponent("sequencer").
			WithField("chars", len(text)).
			WithField("windows", len(windows)).
			Info("running windowed analysis")
	}

	results := make([]*types.AnalysisResult, 0, len(windows))
	scoreMaps := make([]map[string]extractor.ScoreResult, 0, len(windows))
	for _, w := range windows {
		res, scores, err := s.runPipeline(ctx, w, callType)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
		scoreMaps = append(scoreMaps, scores)
	}
	return reduceWindows(results, scoreMaps, callType), nil
}

// ClassifyCallType issues one classification call and normalizes the
// label. A failed call falls back to the default label; the tokens
// spent are returned either way.
func (s *Sequencer) ClassifyCallType(ctx context.Context, text string) (string, int, error) {
	ext := s.extractWithRetry(ctx, extractor.ClassificationField, text, "")
	if ext.Err != nil {
		if err := ctx.Err(); err != nil {
			return "", ext.TokensUsed, fmt.Errorf("analysis cancelled: %w", err)
		}
		return types.CallTypeDiscovery, ext.TokensUsed, nil
	}
	return extractor.NormalizeCallType(ext.Output), ext.TokensUsed, nil
}

// runPipeline runs the 6 field extractions in order plus the
// justification follow-up. There is a pause between field calls (5
// pauses for 6 fields); the justification call follows the scoring
// reply immediately.
func (s *Sequencer) runPipeline(ctx context.Context, doc, callType string) (*types.AnalysisResult, map[string]extractor.ScoreResult, error) {
	outputs := make(map[string]string, len(extractor.Pipeline))
	tokens := 0
	pace := newPacer(s.cfg.InterCallDelay, s.sleep)

	for _, field := range extractor.Pipeline {
		if err := pace.Wait(ctx); err != nil {
			return nil, nil, fmt.Errorf("analysis cancelled: %w", err)
		}
		ext := s.extractWithRetry(ctx, field, doc, outputs[field.DependsOn])
		tokens += ext.TokensUsed
		if ext.Err != nil {
			if err := ctx.Err(); err != nil {
				return nil, nil, fmt.Errorf("analysis cancelled: %w", err)
			}
			// soft failure: zero value for this field, run continues
			continue
		}
		outputs[field.Key] = strings.TrimSpace(ext.Output)
	}

	scoreResults := extractor.ParseScores(outputs[extractor.KeyScoring])
	for _, c := range extractor.Criteria {
		if !scoreResults[c.Key].Found && s.log != nil {
			s.log.WithComponent("sequencer").
				WithField("criterion", c.Key).
				Warn("score not found in reply, defaulting to 0")
		}
	}

	just := s.extractWithRetry(ctx, extractor.JustificationField, doc, outputs[extractor.KeyScoring])
	tokens += just.TokensUsed
	if just.Err != nil {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("analysis cancelled: %w", err)
		}
	}
	justifications := extractor.JustificationsFrom(extractor.ParseJustifications(just.Output))

	scores := extractor.ScoreSetFrom(scoreResults)
	result := &types.AnalysisResult{
		CallType:       callType,
		TotalScore:     scores.Total(), // always recomputed, never read from the reply
		Strengths:      outputs[extractor.KeyStrengths],
		Weaknesses:     outputs[extractor.KeyWeaknesses],
		Summary:        outputs[extractor.KeySummary],
		GeneralTips:    outputs[extractor.KeyGeneralTips],
		NextCallFocus:  outputs[extractor.KeyNextCallFocus],
		Scores:         scores,
		Justifications: justifications,
		TokensUsed:     tokens,
	}
	return result, scoreResults, nil
}

// extractWithRetry retries a field only on rate limiting: doubling
// waits starting at the configured base, no jitter, bounded attempts.
// Any other error stops immediately and stays soft.
func (s *Sequencer) extractWithRetry(ctx context.Context, field extractor.Field, doc, dep string) extractor.Extraction {
	var ext extractor.Extraction
	attempt := 0

	op := func() error {
		attempt++
		ext = s.runner.Extract(ctx, field, doc, dep)
		if ext.Err == nil {
			return nil
		}
		var rle *llm.RateLimitError
		if errors.As(ext.Err, &rle) {
			return ext.Err
		}
		return backoff.Permanent(ext.Err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.BackoffBase
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	maxRetries := uint64(0)
	if s.cfg.MaxAttempts > 1 {
		maxRetries = uint64(s.cfg.MaxAttempts - 1)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)

	notify := func(err error, wait time.Duration) {
		if s.log != nil {
			s.log.WithComponent("sequencer").
				WithField("field", field.Key).
				WithField("attempt", attempt).
				WithField("wait", wait.String()).
				Warn("rate limited, backing off")
		}
	}

	// err is already captured in ext; retry exhaustion stays soft
	_ = backoff.RetryNotifyWithTimer(op, policy, notify, s.timer)
	return ext
}

// slidingWindows cuts text into fixed-size windows with overlap,
// preferring line boundaries for the cut.
func slidingWindows(text string, size, overlap int) []string {
	if size <= 0 || len(text) <= size {
		return []string{text}
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}
	var out []string
	for start := 0; start < len(text); start += step {
		end := start + size
		if end >= len(text) {
			out = append(out, text[start:])
			break
		}
		if nl := strings.LastIndexByte(text[start:end], '\n'); nl > 0 {
			end = start + nl + 1
		}
		out = append(out, text[start:end])
	}
	return out
}

// reduceWindows folds per-window reports into one: free-text sections
// are concatenated (empty ones dropped), each score is the rounded mean
// over the windows that produced it, and the total is the sum of the
// reduced scores. Justifications come from the strongest window.
func reduceWindows(results []*types.AnalysisResult, scoreMaps []map[string]extractor.ScoreResult, callType string) *types.AnalysisResult {
	reduced := make(map[string]extractor.ScoreResult, len(extractor.Criteria))
	for _, c := range extractor.Criteria {
		sum, n := 0, 0
		for _, m := range scoreMaps {
			if r := m[c.Key]; r.Found {
				sum += r.Value
				n++
			}
		}
		if n > 0 {
			reduced[c.Key] = extractor.ScoreResult{
				Value: int(math.Round(float64(sum) / float64(n))),
				Found: true,
			}
		}
	}
	scores := extractor.ScoreSetFrom(reduced)

	join := func(pick func(*types.AnalysisResult) string) string {
		var parts []string
		for _, r := range results {
			if v := strings.TrimSpace(pick(r)); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, "\n\n")
	}

	best := results[0]
	tokens := 0
	for _, r := range results {
		tokens += r.TokensUsed
		if r.TotalScore > best.TotalScore {
			best = r
		}
	}

	return &types.AnalysisResult{
		CallType:       callType,
		TotalScore:     scores.Total(),
		Strengths:      join(func(r *types.AnalysisResult) string { return r.Strengths }),
		Weaknesses:     join(func(r *types.AnalysisResult) string { return r.Weaknesses }),
		Summary:        join(func(r *types.AnalysisResult) string { return r.Summary }),
		GeneralTips:    join(func(r *types.AnalysisResult) string { return r.GeneralTips }),
		NextCallFocus:  join(func(r *types.AnalysisResult) string { return r.NextCallFocus }),
		Scores:         scores,
		Justifications: best.Justifications,
		TokensUsed:     tokens,
	}
}

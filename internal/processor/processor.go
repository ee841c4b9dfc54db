package processor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"sales-insights-go/internal/assembler"
	"sales-insights-go/internal/config"
	"sales-insights-go/internal/dedup"
	"sales-insights-go/internal/logger"
	"sales-insights-go/internal/normalizer"
	"sales-insights-go/internal/store"
	"sales-insights-go/internal/transcription"
	"sales-insights-go/internal/types"
)

// ErrEmptyTranscript means there was nothing left to analyze after
// normalization. This is fatal: no analysis record is produced.
var ErrEmptyTranscript = errors.New("transcript is empty after normalization")

// wordsPerMinute approximates call duration from transcript length for
// the strategy decision.
const wordsPerMinute = 150

// Analyzer is the pipeline contract the processor drives.
type Analyzer interface {
	Run(ctx context.Context, text, callType string) (*types.AnalysisResult, error)
	RunWindowed(ctx context.Context, text, callType string) (*types.AnalysisResult, error)
	ClassifyCallType(ctx context.Context, text string) (string, int, error)
}

// Transcriber turns a media URL into a diarized transcript job.
type Transcriber interface {
	Submit(ctx context.Context, mediaURL string, opts transcription.Options) (string, error)
	WaitForTranscript(ctx context.Context, jobID string) (*transcription.Job, error)
}

// MediaDeleter removes an uploaded recording; used when a duplicate
// makes the fresh upload pointless.
type MediaDeleter interface {
	Delete(path string) error
}

// Request is one analysis job. Either Transcript or MediaURL must be
// set; MediaPath points at the local upload backing MediaURL, if any.
type Request struct {
	UserID     string
	Title      string
	CallType   string
	Transcript string
	MediaURL   string
	MediaPath  string
}

// Result reports how the job ended. Exactly one of the three shapes
// holds: a fresh analysis, a duplicate hit, or a still-running
// transcription.
type Result struct {
	AnalysisID      string
	Analysis        *types.AnalysisResult
	Duplicate       bool
	StillProcessing bool
	TranscriptionID string
	DurationMs      int64
}

// Processor wires transcription, normalization, the duplicate gate,
// the analysis pipeline and persistence into one entry point.
type Processor struct {
	analyzer    Analyzer
	transcriber Transcriber
	gate        *dedup.Gate
	store       store.Store
	media       MediaDeleter
	pipeCfg     config.PipelineConfig
	transCfg    config.TranscriptionConfig
	log         *logger.Logger
}

func New(analyzer Analyzer, transcriber Transcriber, gate *dedup.Gate, st store.Store,
	media MediaDeleter, pipeCfg config.PipelineConfig, transCfg config.TranscriptionConfig,
	log *logger.Logger) *Processor {
	return &Processor{
		analyzer:    analyzer,
		transcriber: transcriber,
		gate:        gate,
		store:       st,
		media:       media,
		pipeCfg:     pipeCfg,
		transCfg:    transCfg,
		log:         log,
	}
}

// Analyze runs one job end to end. The duplicate gate sits before any
// model call, so reruns of known transcripts cost nothing.
func (p *Processor) Analyze(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	log := p.componentLog().WithField("user_id", req.UserID)

	text := req.Transcript
	if strings.TrimSpace(text) == "" && req.MediaURL != "" {
		job, err := p.transcribe(ctx, req.MediaURL)
		if err != nil {
			return nil, err
		}
		if job.Status == transcription.StatusProcessing {
			log.WithField("job_id", job.ID).Info("transcription still running")
			return &Result{
				StillProcessing: true,
				TranscriptionID: job.ID,
				DurationMs:      time.Since(start).Milliseconds(),
			}, nil
		}
		text = transcription.FormatUtterances(job)
	}

	normalized := normalizer.Normalize(text)
	if normalized == "" {
		return nil, ErrEmptyTranscript
	}
	contentHash := assembler.ContentHash(normalized)

	if prior := p.gate.FindExisting(ctx, req.UserID, contentHash); prior != nil {
		log.WithField("analysis_id", prior.ID).Info("duplicate transcript, returning prior analysis")
		if req.MediaPath != "" {
			if err := p.media.Delete(req.MediaPath); err != nil {
				log.WithError(err).Warn("could not remove duplicate upload")
			}
		}
		analysis := prior.Analysis
		return &Result{
			AnalysisID: prior.ID,
			Analysis:   &analysis,
			Duplicate:  true,
			DurationMs: time.Since(start).Milliseconds(),
		}, nil
	}

	callType := req.CallType
	classifyTokens := 0
	if callType == "" {
		var err error
		callType, classifyTokens, err = p.analyzer.ClassifyCallType(ctx, normalized)
		if err != nil {
			return nil, err
		}
		log.WithField("call_type", callType).Debug("call type classified")
	}

	var analysis *types.AnalysisResult
	var err error
	if p.estimatedMinutes(normalized) > p.pipeCfg.WindowedAfterMinutes && p.pipeCfg.WindowedAfterMinutes > 0 {
		analysis, err = p.analyzer.RunWindowed(ctx, normalized, callType)
	} else {
		analysis, err = p.analyzer.Run(ctx, normalized, callType)
	}
	if err != nil {
		return nil, err
	}
	analysis.TokensUsed += classifyTokens
	analysis = assembler.Finalize(analysis, normalized, time.Since(start))

	rec := &store.AnalysisRecord{
		UserID:          req.UserID,
		Title:           req.Title,
		CallType:        analysis.CallType,
		TotalScore:      analysis.TotalScore,
		ContentHash:     analysis.ContentHash,
		TokensUsed:      analysis.TokensUsed,
		TranscriptChars: len(normalized),
		Analysis:        *analysis,
	}
	id, err := p.store.Insert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("persist analysis: %w", err)
	}
	log.WithField("analysis_id", id).
		WithField("total_score", analysis.TotalScore).
		WithField("tokens", analysis.TokensUsed).
		Info("analysis complete")

	return &Result{
		AnalysisID: id,
		Analysis:   analysis,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func (p *Processor) transcribe(ctx context.Context, mediaURL string) (*transcription.Job, error) {
	jobID, err := p.transcriber.Submit(ctx, mediaURL, transcription.Options{
		SpeakerLabels: true,
		Punctuate:     true,
		Language:      p.transCfg.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("transcribe media: %w", err)
	}
	job, err := p.transcriber.WaitForTranscript(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("transcribe media: %w", err)
	}
	return job, nil
}

func (p *Processor) estimatedMinutes(normalized string) int {
	return len(strings.Fields(normalized)) / wordsPerMinute
}

func (p *Processor) componentLog() *logger.Logger {
	if p.log != nil {
		return p.log
	}
	return logger.New()
}

// TitleFromFilename derives a display title from an uploaded file name:
// extension dropped, separators turned into spaces.
func TitleFromFilename(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}

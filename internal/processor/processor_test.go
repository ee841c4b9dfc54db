package processor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sales-insights-go/internal/assembler"
	"sales-insights-go/internal/config"
	"sales-insights-go/internal/dedup"
	"sales-insights-go/internal/store"
	"sales-insights-go/internal/transcription"
	"sales-insights-go/internal/types"
)

type fakeAnalyzer struct {
	runCalls      int
	windowedCalls int
	classifyCalls int
	result        *types.AnalysisResult
	gotCallType   string
}

func (f *fakeAnalyzer) Run(ctx context.Context, text, callType string) (*types.AnalysisResult, error) {
	f.runCalls++
	f.gotCallType = callType
	res := *f.result
	res.CallType = callType
	return &res, nil
}

func (f *fakeAnalyzer) RunWindowed(ctx context.Context, text, callType string) (*types.AnalysisResult, error) {
	f.windowedCalls++
	res := *f.result
	res.CallType = callType
	return &res, nil
}

func (f *fakeAnalyzer) ClassifyCallType(ctx context.Context, text string) (string, int, error) {
	f.classifyCalls++
	return types.CallTypeCold, 5, nil
}

type fakeTranscriber struct {
	job *transcription.Job
}

func (f *fakeTranscriber) Submit(ctx context.Context, mediaURL string, opts transcription.Options) (string, error) {
	return "job-1", nil
}

func (f *fakeTranscriber) WaitForTranscript(ctx context.Context, jobID string) (*transcription.Job, error) {
	return f.job, nil
}

type fakeStore struct {
	existing *store.AnalysisRecord
	inserted []*store.AnalysisRecord
	findErr  error
}

func (f *fakeStore) Insert(ctx context.Context, rec *store.AnalysisRecord) (string, error) {
	rec.ID = "new-id"
	f.inserted = append(f.inserted, rec)
	return rec.ID, nil
}

func (f *fakeStore) FindByHash(ctx context.Context, userID, hash string) (*store.AnalysisRecord, error) {
	return f.existing, f.findErr
}

func (f *fakeStore) ListByUser(ctx context.Context, userID string) ([]store.AnalysisRecord, error) {
	return nil, nil
}

func (f *fakeStore) Close() error { return nil }

type fakeMedia struct {
	deleted []string
}

func (f *fakeMedia) Delete(path string) error {
	f.deleted = append(f.deleted, path)
	return nil
}

func testResult() *types.AnalysisResult {
	return &types.AnalysisResult{
		Strengths:  "good pacing",
		Scores:     types.ScoreSet{ClarityFluency: 4, ToneControl: 3},
		TokensUsed: 70,
	}
}

func newTestProcessor(an *fakeAnalyzer, ts *fakeTranscriber, st *fakeStore, md *fakeMedia) *Processor {
	return New(an, ts, dedup.NewGate(st, nil), st, md,
		config.PipelineConfig{WindowedAfterMinutes: 120},
		config.TranscriptionConfig{Language: "en"}, nil)
}

func TestAnalyzeFreshTranscript(t *testing.T) {
	an := &fakeAnalyzer{result: testResult()}
	st := &fakeStore{}
	p := newTestProcessor(an, &fakeTranscriber{}, st, &fakeMedia{})

	res, err := p.Analyze(context.Background(), Request{
		UserID:     "u1",
		Title:      "Acme intro call",
		CallType:   types.CallTypeDiscovery,
		Transcript: "Speaker 1: hello there\nSpeaker 2: hi",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Duplicate || res.StillProcessing {
		t.Errorf("result flags: %+v", res)
	}
	if res.AnalysisID != "new-id" {
		t.Errorf("AnalysisID = %q", res.AnalysisID)
	}
	if an.runCalls != 1 || an.windowedCalls != 0 {
		t.Errorf("run=%d windowed=%d", an.runCalls, an.windowedCalls)
	}
	if an.classifyCalls != 0 {
		t.Error("classification ran despite a caller-supplied call type")
	}
	if an.gotCallType != types.CallTypeDiscovery {
		t.Errorf("call type passed = %q", an.gotCallType)
	}
	if res.Analysis.ContentHash == "" || res.Analysis.TotalScore != 7 {
		t.Errorf("analysis not finalized: %+v", res.Analysis)
	}
	if len(st.inserted) != 1 || st.inserted[0].UserID != "u1" || st.inserted[0].Title != "Acme intro call" {
		t.Errorf("inserted = %+v", st.inserted)
	}
}

func TestAnalyzeDuplicateShortCircuits(t *testing.T) {
	prior := &store.AnalysisRecord{
		ID:       "old-id",
		UserID:   "u1",
		Analysis: types.AnalysisResult{Summary: "prior summary", TotalScore: 30},
	}
	an := &fakeAnalyzer{result: testResult()}
	st := &fakeStore{existing: prior}
	md := &fakeMedia{}
	p := newTestProcessor(an, &fakeTranscriber{}, st, md)

	res, err := p.Analyze(context.Background(), Request{
		UserID:     "u1",
		Transcript: "Speaker 1: same call as before",
		MediaPath:  "/media/fresh-upload.mp3",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !res.Duplicate {
		t.Fatal("Duplicate = false")
	}
	if res.AnalysisID != "old-id" || res.Analysis.Summary != "prior summary" {
		t.Errorf("result = %+v", res)
	}
	if an.runCalls+an.windowedCalls+an.classifyCalls != 0 {
		t.Error("duplicate hit must not reach the model")
	}
	if len(st.inserted) != 0 {
		t.Error("duplicate hit must not insert")
	}
	if len(md.deleted) != 1 || md.deleted[0] != "/media/fresh-upload.mp3" {
		t.Errorf("media deleted = %v", md.deleted)
	}
}

func TestAnalyzeClassifiesWhenCallTypeMissing(t *testing.T) {
	an := &fakeAnalyzer{result: testResult()}
	st := &fakeStore{}
	p := newTestProcessor(an, &fakeTranscriber{}, st, &fakeMedia{})

	res, err := p.Analyze(context.Background(), Request{
		UserID:     "u1",
		Transcript: "Speaker 1: a call without a declared type",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if an.classifyCalls != 1 {
		t.Errorf("classifyCalls = %d, want 1", an.classifyCalls)
	}
	if res.Analysis.CallType != types.CallTypeCold {
		t.Errorf("CallType = %q", res.Analysis.CallType)
	}
	if res.Analysis.TokensUsed != 75 {
		t.Errorf("TokensUsed = %d, want 75 (pipeline + classification)", res.Analysis.TokensUsed)
	}
}

func TestAnalyzeEmptyTranscript(t *testing.T) {
	p := newTestProcessor(&fakeAnalyzer{result: testResult()}, &fakeTranscriber{}, &fakeStore{}, &fakeMedia{})
	_, err := p.Analyze(context.Background(), Request{UserID: "u1", Transcript: "   \n  "})
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("err = %v, want ErrEmptyTranscript", err)
	}
}

func TestAnalyzeTranscribesMedia(t *testing.T) {
	an := &fakeAnalyzer{result: testResult()}
	ts := &fakeTranscriber{job: &transcription.Job{
		ID:     "job-1",
		Status: transcription.StatusCompleted,
		Utterances: []types.Utterance{
			{Speaker: "A", StartMs: 0, Text: "Hello, this is the vendor calling."},
		},
	}}
	st := &fakeStore{}
	p := newTestProcessor(an, ts, st, &fakeMedia{})

	res, err := p.Analyze(context.Background(), Request{
		UserID:   "u1",
		CallType: types.CallTypeCold,
		MediaURL: "https://media/call.mp3",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.StillProcessing {
		t.Error("StillProcessing on a completed job")
	}
	if an.runCalls != 1 {
		t.Errorf("runCalls = %d", an.runCalls)
	}
	if len(st.inserted) != 1 || st.inserted[0].TranscriptChars == 0 {
		t.Errorf("inserted = %+v", st.inserted)
	}
}

func TestAnalyzeStillProcessing(t *testing.T) {
	ts := &fakeTranscriber{job: &transcription.Job{ID: "job-1", Status: transcription.StatusProcessing}}
	an := &fakeAnalyzer{result: testResult()}
	st := &fakeStore{}
	p := newTestProcessor(an, ts, st, &fakeMedia{})

	res, err := p.Analyze(context.Background(), Request{UserID: "u1", MediaURL: "https://media/call.mp3"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !res.StillProcessing || res.TranscriptionID != "job-1" {
		t.Errorf("result = %+v", res)
	}
	if an.runCalls+an.classifyCalls != 0 || len(st.inserted) != 0 {
		t.Error("unfinished transcription must not analyze or insert")
	}
}

func TestAnalyzePicksWindowedStrategy(t *testing.T) {
	an := &fakeAnalyzer{result: testResult()}
	st := &fakeStore{}
	p := newTestProcessor(an, &fakeTranscriber{}, st, &fakeMedia{})

	// over 120 estimated minutes at 150 words per minute
	long := strings.Repeat("word ", 150*121)
	_, err := p.Analyze(context.Background(), Request{
		UserID:     "u1",
		CallType:   types.CallTypeDiscovery,
		Transcript: long,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if an.windowedCalls != 1 || an.runCalls != 0 {
		t.Errorf("windowed=%d run=%d, want windowed strategy", an.windowedCalls, an.runCalls)
	}
}

func TestAnalyzeHashMatchesNormalizedText(t *testing.T) {
	an := &fakeAnalyzer{result: testResult()}
	st := &fakeStore{}
	p := newTestProcessor(an, &fakeTranscriber{}, st, &fakeMedia{})

	// same content, different raw formatting
	for _, raw := range []string{"speaker 1: hello  there", "Speaker 1:  hello there\n"} {
		st.inserted = nil
		if _, err := p.Analyze(context.Background(), Request{
			UserID: "u1", CallType: types.CallTypeCold, Transcript: raw,
		}); err != nil {
			t.Fatalf("Analyze(%q): %v", raw, err)
		}
		want := assembler.ContentHash("Speaker 1: hello there")
		if st.inserted[0].ContentHash != want {
			t.Errorf("hash for %q = %s, want hash of normalized form", raw, st.inserted[0].ContentHash)
		}
	}
}

func TestTitleFromFilename(t *testing.T) {
	cases := map[string]string{
		"acme_discovery-call.mp3": "acme discovery call",
		"/uploads/Q3 review.wav":  "Q3 review",
		"plain":                   "plain",
		"double__underscore.m4a":  "double underscore",
	}
	for in, want := range cases {
		if got := TitleFromFilename(in); got != want {
			t.Errorf("TitleFromFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

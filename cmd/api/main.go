package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sales-insights-go/internal/config"
	"sales-insights-go/internal/dedup"
	"sales-insights-go/internal/export"
	"sales-insights-go/internal/extractor"
	"sales-insights-go/internal/llm"
	"sales-insights-go/internal/logger"
	"sales-insights-go/internal/media"
	"sales-insights-go/internal/processor"
	"sales-insights-go/internal/scheduler"
	"sales-insights-go/internal/sequencer"
	"sales-insights-go/internal/store"
	"sales-insights-go/internal/transcription"
)

const maxUploadBytes = 200 << 20 // 200 MB

func main() {
	_ = godotenv.Load()
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	db, err := store.Open(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	mediaStore, err := media.NewStorage(cfg.Media.Path, log)
	if err != nil {
		log.WithError(err).Fatal("init media storage")
	}

	llmClient := llm.NewHTTPClient(cfg.LLM, log)
	runner := extractor.NewRunner(llmClient, log, cfg.LLM.Temperature, cfg.LLM.MaxTokens)
	seq := sequencer.New(runner, cfg.Pipeline, log)
	trans := transcription.NewClient(cfg.Transcription, log)
	gate := dedup.NewGate(db, log)
	proc := processor.New(seq, trans, gate, db, mediaStore, cfg.Pipeline, cfg.Transcription, log)

	sched := scheduler.New(log)
	if cfg.Scheduler.Enabled {
		if err := sched.RegisterMediaCleanup(cfg.Media, cfg.Scheduler.CleanupCronSpec, mediaStore); err != nil {
			log.WithError(err).Fatal("register cleanup job")
		}
		sched.Start()
	}

	srv := &server{proc: proc, st: db, media: mediaStore, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealthz)
	mux.HandleFunc("/analyze", srv.handleAnalyze)
	mux.HandleFunc("/analyses", srv.handleAnalyses)
	mux.HandleFunc("/analyses/export", srv.handleExport)
	mux.Handle("/media/", http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.Media.Path))))

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("api listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	if cfg.Scheduler.Enabled {
		sched.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

type server struct {
	proc  *processor.Processor
	st    store.Store
	media *media.Storage
	log   *logger.Logger
}

type analyzeRequest struct {
	UserID     string `json:"userId"`
	Title      string `json:"title"`
	CallType   string `json:"callType"`
	Transcript string `json:"transcript"`
	MediaURL   string `json:"mediaUrl"`
}

type analyzeResponse struct {
	AnalysisID      string `json:"analysisId,omitempty"`
	Duplicate       bool   `json:"duplicate"`
	StillProcessing bool   `json:"stillProcessing"`
	TranscriptionID string `json:"transcriptionId,omitempty"`
	DurationMs      int64  `json:"durationMs"`
	Analysis        any    `json:"analysis,omitempty"`
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	log := s.log.WithRequest(r)

	var req processor.Request
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		req, err = s.parseUpload(r)
	} else {
		req, err = parseJSONRequest(r)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if strings.TrimSpace(req.Transcript) == "" && req.MediaURL == "" {
		writeError(w, http.StatusBadRequest, "transcript or media is required")
		return
	}

	res, err := s.proc.Analyze(r.Context(), req)
	if err != nil {
		if errors.Is(err, processor.ErrEmptyTranscript) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if errors.Is(err, context.Canceled) {
			return // client went away
		}
		log.WithError(err).Error("analysis failed")
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	status := http.StatusOK
	if res.StillProcessing {
		status = http.StatusAccepted
	}
	writeJSON(w, status, analyzeResponse{
		AnalysisID:      res.AnalysisID,
		Duplicate:       res.Duplicate,
		StillProcessing: res.StillProcessing,
		TranscriptionID: res.TranscriptionID,
		DurationMs:      res.DurationMs,
		Analysis:        res.Analysis,
	})
}

func parseJSONRequest(r *http.Request) (processor.Request, error) {
	var body analyzeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 10<<20)).Decode(&body); err != nil {
		return processor.Request{}, fmt.Errorf("decode request body: %w", err)
	}
	return processor.Request{
		UserID:     body.UserID,
		Title:      body.Title,
		CallType:   body.CallType,
		Transcript: body.Transcript,
		MediaURL:   body.MediaURL,
	}, nil
}

// parseUpload stores the recording locally and hands the pipeline a URL
// the transcription provider can fetch it from.
func (s *server) parseUpload(r *http.Request) (processor.Request, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return processor.Request{}, fmt.Errorf("parse upload: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return processor.Request{}, fmt.Errorf("missing file field: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return processor.Request{}, fmt.Errorf("read upload: %w", err)
	}
	path, err := s.media.Save(header.Filename, data)
	if err != nil {
		return processor.Request{}, err
	}

	title := r.FormValue("title")
	if title == "" {
		title = processor.TitleFromFilename(header.Filename)
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	mediaURL := fmt.Sprintf("%s://%s/media/%s", scheme, r.Host, filepath.Base(path))

	return processor.Request{
		UserID:    r.FormValue("userId"),
		Title:     title,
		CallType:  r.FormValue("callType"),
		MediaURL:  mediaURL,
		MediaPath: path,
	}, nil
}

func (s *server) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	records, err := s.st.ListByUser(r.Context(), userID)
	if err != nil {
		s.log.WithRequest(r).WithError(err).Error("list analyses failed")
		writeError(w, http.StatusInternalServerError, "could not list analyses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": records})
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	records, err := s.st.ListByUser(r.Context(), userID)
	if err != nil {
		s.log.WithRequest(r).WithError(err).Error("export failed")
		writeError(w, http.StatusInternalServerError, "could not export analyses")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="analyses.xlsx"`)
	if err := export.Write(w, records); err != nil {
		s.log.WithRequest(r).WithError(err).Error("write export")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"sales-insights-go/internal/config"
	"sales-insights-go/internal/logger"
	"sales-insights-go/internal/types"
)

// Job statuses reported by the provider.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Options control a transcription submission.
type Options struct {
	SpeakerLabels bool
	Punctuate     bool
	Language      string
}

// Job mirrors the provider's transcript resource.
type Job struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	Text       string            `json:"text"`
	Error      string            `json:"error,omitempty"`
	Utterances []types.Utterance `json:"utterances,omitempty"`
}

// Client talks to a diarizing transcription provider (AssemblyAI-style
// REST: submit a media URL, poll the job until it settles).
type Client struct {
	cfg  config.TranscriptionConfig
	http *http.Client
	log  *logger.Logger

	sleep func(ctx context.Context, d time.Duration) error // test seam
}

func NewClient(cfg config.TranscriptionConfig, log *logger.Logger) *Client {
	return &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: 30 * time.Second},
		log:   log,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type submitRequest struct {
	AudioURL      string `json:"audio_url"`
	SpeakerLabels bool   `json:"speaker_labels"`
	Punctuate     bool   `json:"punctuate"`
	LanguageCode  string `json:"language_code,omitempty"`
}

// Submit queues a transcription job and returns its id.
func (c *Client) Submit(ctx context.Context, mediaURL string, opts Options) (string, error) {
	payload, err := json.Marshal(submitRequest{
		AudioURL:      mediaURL,
		SpeakerLabels: opts.SpeakerLabels,
		Punctuate:     opts.Punctuate,
		LanguageCode:  opts.Language,
	})
	if err != nil {
		return "", fmt.Errorf("encode submit request: %w", err)
	}

	var job Job
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/transcript"
	if err := c.doJSON(ctx, http.MethodPost, endpoint, payload, &job); err != nil {
		return "", fmt.Errorf("submit transcription: %w", err)
	}
	if job.ID == "" {
		return "", fmt.Errorf("submit transcription: provider returned no job id")
	}
	if c.log != nil {
		c.log.WithComponent("transcription").WithField("job_id", job.ID).Info("transcription submitted")
	}
	return job.ID, nil
}

// Poll fetches the current state of a job.
func (c *Client) Poll(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/transcript/" + jobID
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &job); err != nil {
		return nil, fmt.Errorf("poll transcription: %w", err)
	}
	return &job, nil
}

// WaitForTranscript polls until the job settles or the poll budget runs
// out. Budget exhaustion is not an error: the job comes back with
// status processing and the caller decides what to tell the user.
func (c *Client) WaitForTranscript(ctx context.Context, jobID string) (*Job, error) {
	maxPolls := c.cfg.MaxPolls
	if maxPolls <= 0 {
		maxPolls = 60
	}
	interval := c.cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	for i := 0; i < maxPolls; i++ {
		if err := c.sleep(ctx, interval); err != nil {
			return nil, err
		}
		job, err := c.Poll(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// transient poll failure, keep going
			if c.log != nil {
				c.log.WithComponent("transcription").WithError(err).Warn("poll failed, will retry")
			}
			continue
		}
		switch job.Status {
		case StatusCompleted:
			return job, nil
		case StatusError:
			return nil, fmt.Errorf("transcription failed: %s", job.Error)
		}
	}
	return &Job{ID: jobID, Status: StatusProcessing}, nil
}

// FormatUtterances renders diarized speech as one line per turn:
// [HH:MM:SS] - Speaker N - text. Speakers are numbered in order of
// first appearance regardless of the provider's own labels. Jobs
// without utterances fall back to the flat text.
func FormatUtterances(job *Job) string {
	if job == nil {
		return ""
	}
	if len(job.Utterances) == 0 {
		return job.Text
	}

	numbers := make(map[string]int)
	var b strings.Builder
	for i, u := range job.Utterances {
		n, ok := numbers[u.Speaker]
		if !ok {
			n = len(numbers) + 1
			numbers[u.Speaker] = n
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		total := u.StartMs / 1000
		fmt.Fprintf(&b, "[%02d:%02d:%02d] - Speaker %d - %s",
			total/3600, (total%3600)/60, total%60, n, strings.TrimSpace(u.Text))
	}
	return b.String()
}

// doJSON sends one request with retry on 5xx and transport errors.
func (c *Client) doJSON(ctx context.Context, method, url string, body []byte, target any) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 15 * time.Second

	op := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", c.cfg.APIKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error: status=%d", resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw))))
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return backoff.Permanent(fmt.Errorf("decode reply: %w", err))
		}
		return nil
	}
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"sales-insights-go/internal/logger"
)

// Storage keeps uploaded recordings on a mounted volume. Names are
// random so uploads never collide; the original extension is kept so
// the transcription provider can sniff the format.
type Storage struct {
	root string
	log  *logger.Logger
}

func NewStorage(root string, log *logger.Logger) (*Storage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &Storage{root: root, log: log}, nil
}

// Save writes the recording and returns its path on disk.
func (s *Storage) Save(originalName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(s.root, uuid.New().String()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return path, nil
}

// Delete removes a saved recording. Callers treat this as best-effort;
// a missing file is fine.
func (s *Storage) Delete(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete media file: %w", err)
	}
	return nil
}

// SweepOlderThan deletes recordings whose mtime is past the retention
// window and reports how many were removed.
func (s *Storage) SweepOlderThan(age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("read media root: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.root, e.Name())
		if err := os.Remove(path); err != nil {
			if s.log != nil {
				s.log.WithComponent("media").WithError(err).WithField("path", path).Warn("sweep could not remove file")
			}
			continue
		}
		removed++
	}
	return removed, nil
}

package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"sales-insights-go/internal/config"
	"sales-insights-go/internal/logger"
	"sales-insights-go/internal/media"
)

// Scheduler owns the background jobs. Right now that is one job: the
// nightly sweep of uploaded recordings past retention.
type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger
}

func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log,
	}
}

// RegisterMediaCleanup schedules the retention sweep.
func (s *Scheduler) RegisterMediaCleanup(cfg config.MediaConfig, spec string, storage *media.Storage) error {
	job := &mediaCleanupJob{
		storage:   storage,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		log:       s.log,
	}
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return err
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	if s.log != nil {
		s.log.WithComponent("scheduler").Info("scheduler started")
	}
}

// Stop waits for running jobs to finish, up to 10 seconds.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
		if s.log != nil {
			s.log.WithComponent("scheduler").Warn("jobs still running at shutdown deadline")
		}
	}
}

type mediaCleanupJob struct {
	storage   *media.Storage
	retention time.Duration
	log       *logger.Logger
}

func (j *mediaCleanupJob) Run() {
	removed, err := j.storage.SweepOlderThan(j.retention)
	if err != nil {
		if j.log != nil {
			j.log.WithComponent("scheduler").WithError(err).Error("media sweep failed")
		}
		return
	}
	if j.log != nil {
		j.log.WithComponent("scheduler").WithField("removed", removed).Info("media sweep finished")
	}
}

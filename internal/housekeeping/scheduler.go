package housekeeping

import (
	"log/slog"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/robfig/cron/v3"
)

// Scheduler runs the Incomplete-Download Cleaner on a cron cadence
// across every configured folder, grounded on the teacher's
// internal/trigger/scheduled.go use of robfig/cron for time-based
// triggers. The Duplicate Detector is not scheduled here — it runs
// synchronously against each newly observed file, called directly by
// whatever wires the engine to a DuplicateDetector.
type Scheduler struct {
	cron    *cron.Cron
	cleaner *IncompleteCleaner
	folders func() ([]domain.Folder, error)
	logger  *slog.Logger
}

// NewScheduler builds a Scheduler. folders is called fresh on every tick
// so folder configuration changes take effect without a restart.
func NewScheduler(cleaner *IncompleteCleaner, folders func() ([]domain.Folder, error), logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		cleaner: cleaner,
		folders: folders,
		logger:  logger,
	}
}

// Start schedules the sweep at the given cron expression (seconds-field
// form, e.g. "0 */5 * * * *" for every five minutes) and begins running
// it in the background.
func (s *Scheduler) Start(cronExpr string) error {
	_, err := s.cron.AddFunc(cronExpr, s.sweepAll)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) sweepAll() {
	folders, err := s.folders()
	if err != nil {
		s.logger.Error("listing folders for housekeeping sweep", "error", err)
		return
	}
	for _, folder := range folders {
		if !folder.Enabled {
			continue
		}
		s.cleaner.Sweep(folder)
	}
}

package jobs

import (
	"context"
	"time"

	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"

	"github.com/robfig/cron/v3"
)

// VerifierSweepSpec runs the pending-verifier sweep every ten minutes.
const VerifierSweepSpec = "@every 10m"

// Maintenance manages background housekeeping jobs.
type Maintenance struct {
	cron      *cron.Cron
	verifiers repository.IVerifierStore
	maxAge    time.Duration
	now       func() time.Time
}

func NewMaintenance(verifiers repository.IVerifierStore, maxAge time.Duration) *Maintenance {
	return &Maintenance{
		cron:      cron.New(),
		verifiers: verifiers,
		maxAge:    maxAge,
		now:       time.Now,
	}
}

// Start registers the jobs and starts the cron runner.
func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc(VerifierSweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		m.SweepVerifiers(ctx)
	}); err != nil {
		return err
	}
	m.cron.Start()
	logger.GetLogger().Info("Maintenance scheduler started")
	return nil
}

// Stop waits for running jobs to finish.
func (m *Maintenance) Stop() {
	<-m.cron.Stop().Done()
	logger.GetLogger().Info("Maintenance scheduler stopped")
}

// SweepVerifiers drops abandoned OAuth verifiers and returns how many were removed.
func (m *Maintenance) SweepVerifiers(ctx context.Context) int {
	removed, err := m.verifiers.SweepExpired(ctx, m.now(), m.maxAge)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Failed to sweep expired verifiers")
		return 0
	}
	if removed > 0 {
		logger.GetLogger().WithField("removed", removed).Info("Swept expired verifiers")
	}
	return removed
}

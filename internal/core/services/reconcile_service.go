package services

import (
	"context"
	"sync"
	"time"

	"casedesk/internal/adapters/persistence/repositories"
	"casedesk/internal/pkg/logger"

	"github.com/robfig/cron/v3"
)

// ReconcileConfig controls the unlinked-escalation sweep
type ReconcileConfig struct {
	Schedule  string
	MinAge    time.Duration
	BatchSize int
}

// SweepReport summarizes one sweep
type SweepReport struct {
	Scanned    int `json:"scanned"`
	Linked     int `json:"linked"`
	RolledBack int `json:"rolled_back"`
	Failed     int `json:"failed"`
}

// ReconcileService periodically repairs credit cases left between an
// escalation intent and its link
type ReconcileService struct {
	creditRepo  repositories.CreditCaseRepository
	escalations *EscalationCoordinator
	cfg         ReconcileConfig
	cron        *cron.Cron
	running     sync.Mutex
	clock       func() time.Time
	log         *logger.Logger
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(
	creditRepo repositories.CreditCaseRepository,
	escalations *EscalationCoordinator,
	cfg ReconcileConfig,
	log *logger.Logger,
) *ReconcileService {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 100
	}
	return &ReconcileService{
		creditRepo:  creditRepo,
		escalations: escalations,
		cfg:         cfg,
		clock:       systemClock,
		log:         log.With("component", "ReconcileService"),
	}
}

// Start schedules the sweep
func (s *ReconcileService) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.log.Error("reconcile sweep failed", "error", err)
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("reconcile sweep scheduled", "schedule", s.cfg.Schedule, "min_age", s.cfg.MinAge)
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish
func (s *ReconcileService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.log.Info("reconcile sweep stopped")
}

// Sweep resumes every unlinked escalation older than MinAge. Overlapping
// runs are skipped.
func (s *ReconcileService) Sweep(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{}
	if !s.running.TryLock() {
		s.log.Debug("reconcile sweep already running, skipping")
		return report, nil
	}
	defer s.running.Unlock()

	stuck, err := s.creditRepo.ListUnlinkedEscalations(ctx, s.clock().Add(-s.cfg.MinAge), s.cfg.BatchSize)
	if err != nil {
		return report, err
	}

	for _, credit := range stuck {
		report.Scanned++
		out, err := s.escalations.Resume(ctx, credit)
		switch {
		case err != nil:
			report.Failed++
			s.log.Warn("unlinked escalation still pending", "credit_case_id", credit.ID, "error", err)
		case out.RolledBack:
			report.RolledBack++
		default:
			report.Linked++
		}
	}

	if report.Scanned > 0 {
		s.log.Info("reconcile sweep finished",
			"scanned", report.Scanned, "linked", report.Linked,
			"rolled_back", report.RolledBack, "failed", report.Failed)
	}
	return report, nil
}

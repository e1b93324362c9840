package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/learnloom/learnloom-backend/pkg/db/models"
	"github.com/learnloom/learnloom-backend/pkg/logger"
	"github.com/learnloom/learnloom-backend/pkg/metrics"
)

const defaultOrphanGrace = 15 * time.Minute

type ledgerIntegrityStore interface {
	FindOrphanEnrollmentsBefore(ctx context.Context, cutoff time.Time) ([]models.Enrollment, error)
	CountPaidOutMissingPayout(ctx context.Context) (int64, error)
}

type LedgerIntegrityJobParams struct {
	Logger     *logger.Logger
	Repository ledgerIntegrityStore
	Metrics    *metrics.JobMetrics
	// Grace is how long a paid enrollment may exist without its transaction
	// before it counts as orphaned. Covers in-flight reconciles.
	Grace time.Duration
}

// NewLedgerIntegrityJob builds the sweep that detects ledger records a torn
// write could leave behind. Detection only: the reconciler writes both rows
// in one transaction, so anything this job finds points at manual data edits
// or a bug, and a human decides the repair.
func NewLedgerIntegrityJob(params LedgerIntegrityJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	grace := params.Grace
	if grace <= 0 {
		grace = defaultOrphanGrace
	}
	return &ledgerIntegrityJob{
		logg:    params.Logger,
		repo:    params.Repository,
		metrics: params.Metrics,
		grace:   grace,
		now:     time.Now,
	}, nil
}

type ledgerIntegrityJob struct {
	logg    *logger.Logger
	repo    ledgerIntegrityStore
	metrics *metrics.JobMetrics
	grace   time.Duration
	now     func() time.Time
}

func (j *ledgerIntegrityJob) Name() string { return "ledger-integrity" }

func (j *ledgerIntegrityJob) Run(ctx context.Context) error {
	var errs []error

	cutoff := j.now().UTC().Add(-j.grace)
	orphans, err := j.repo.FindOrphanEnrollmentsBefore(ctx, cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("orphan enrollment sweep: %w", err))
	} else {
		if j.metrics != nil {
			j.metrics.SetOrphanedEnrollments(len(orphans))
		}
		for _, enrollment := range orphans {
			logCtx := j.logg.WithFields(ctx, map[string]any{
				"enrollment_id": enrollment.ID,
				"student_id":    enrollment.StudentID,
				"course_id":     enrollment.CourseID,
				"amount_paid":   enrollment.AmountPaid,
			})
			j.logg.Warn(logCtx, "paid enrollment has no transaction")
		}
		if len(orphans) == 0 {
			j.logg.Info(j.logg.WithField(ctx, "cutoff", cutoff), "no orphaned enrollments")
		}
	}

	unlinked, err := j.repo.CountPaidOutMissingPayout(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("unlinked settlement sweep: %w", err))
	} else if unlinked > 0 {
		j.logg.Warn(j.logg.WithField(ctx, "transactions", unlinked),
			"settled transactions missing a payout reference")
	}

	return multierr.Combine(errs...)
}

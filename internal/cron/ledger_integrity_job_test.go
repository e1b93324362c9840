package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/learnloom/learnloom-backend/pkg/db/models"
	"github.com/learnloom/learnloom-backend/pkg/logger"
	"github.com/learnloom/learnloom-backend/pkg/metrics"
)

type fakeIntegrityStore struct {
	orphans    []models.Enrollment
	unlinked   int64
	orphanErr  error
	countErr   error
	lastCutoff time.Time
}

func (f *fakeIntegrityStore) FindOrphanEnrollmentsBefore(_ context.Context, cutoff time.Time) ([]models.Enrollment, error) {
	f.lastCutoff = cutoff
	if f.orphanErr != nil {
		return nil, f.orphanErr
	}
	return f.orphans, nil
}

func (f *fakeIntegrityStore) CountPaidOutMissingPayout(context.Context) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.unlinked, nil
}

func newIntegrityJob(t *testing.T, store *fakeIntegrityStore, collectors *metrics.JobMetrics) *ledgerIntegrityJob {
	t.Helper()
	jobIface, err := NewLedgerIntegrityJob(LedgerIntegrityJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: store,
		Metrics:    collectors,
	})
	if err != nil {
		t.Fatalf("NewLedgerIntegrityJob: %v", err)
	}
	job, ok := jobIface.(*ledgerIntegrityJob)
	if !ok {
		t.Fatalf("expected ledgerIntegrityJob, got %T", jobIface)
	}
	return job
}

func TestLedgerIntegrityJobPublishesOrphanGauge(t *testing.T) {
	registry := prometheus.NewRegistry()
	collectors := metrics.NewJobMetrics(registry)
	store := &fakeIntegrityStore{
		orphans: []models.Enrollment{
			{ID: uuid.New(), StudentID: uuid.New(), CourseID: uuid.New(), AmountPaid: decimal.RequireFromString("25.00")},
			{ID: uuid.New(), StudentID: uuid.New(), CourseID: uuid.New(), AmountPaid: decimal.RequireFromString("40.00")},
		},
	}
	job := newIntegrityJob(t, store, collectors)
	now := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expectedCutoff := now.Add(-defaultOrphanGrace)
	if !store.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, store.lastCutoff)
	}

	gauge := `
# HELP ledger_orphaned_enrollments Paid enrollments currently lacking a ledger transaction.
# TYPE ledger_orphaned_enrollments gauge
ledger_orphaned_enrollments 2
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(gauge), "ledger_orphaned_enrollments"); err != nil {
		t.Fatalf("gauge mismatch: %v", err)
	}
}

func TestLedgerIntegrityJobResetsGaugeWhenClean(t *testing.T) {
	registry := prometheus.NewRegistry()
	collectors := metrics.NewJobMetrics(registry)
	store := &fakeIntegrityStore{}
	job := newIntegrityJob(t, store, collectors)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	gauge := `
# HELP ledger_orphaned_enrollments Paid enrollments currently lacking a ledger transaction.
# TYPE ledger_orphaned_enrollments gauge
ledger_orphaned_enrollments 0
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(gauge), "ledger_orphaned_enrollments"); err != nil {
		t.Fatalf("gauge mismatch: %v", err)
	}
}

func TestLedgerIntegrityJobCombinesSweepErrors(t *testing.T) {
	store := &fakeIntegrityStore{
		orphanErr: errors.New("orphan query failed"),
		countErr:  errors.New("count query failed"),
	}
	job := newIntegrityJob(t, store, nil)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error")
	}
	if !strings.Contains(err.Error(), "orphan query failed") || !strings.Contains(err.Error(), "count query failed") {
		t.Fatalf("expected both sweep errors, got %v", err)
	}
}

func TestLedgerIntegrityJobToleratesUnlinkedSettlements(t *testing.T) {
	store := &fakeIntegrityStore{unlinked: 3}
	job := newIntegrityJob(t, store, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("detection must not fail the job: %v", err)
	}
}

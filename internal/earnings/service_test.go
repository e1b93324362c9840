package earnings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/learnloom/learnloom-backend/internal/ledger"
	dbmodels "github.com/learnloom/learnloom-backend/pkg/db/models"
	pkgerrors "github.com/learnloom/learnloom-backend/pkg/errors"
)

type stubEarningsRepo struct {
	total   decimal.Decimal
	pending decimal.Decimal
	month   decimal.Decimal
	err     error

	filters []ledger.EarningsFilter
}

func (s *stubEarningsRepo) WithTx(*gorm.DB) ledger.Repository { return s }

func (s *stubEarningsRepo) SumEarnings(_ context.Context, _ uuid.UUID, filter ledger.EarningsFilter) (decimal.Decimal, error) {
	if s.err != nil {
		return decimal.Zero, s.err
	}
	s.filters = append(s.filters, filter)
	switch {
	case filter.UnpaidOnly:
		return s.pending, nil
	case filter.CreatedAfter != nil:
		return s.month, nil
	default:
		return s.total, nil
	}
}

func (s *stubEarningsRepo) FindEnrollment(context.Context, uuid.UUID, uuid.UUID) (*dbmodels.Enrollment, error) {
	return nil, nil
}
func (s *stubEarningsRepo) CreateEnrollment(context.Context, *dbmodels.Enrollment) error   { return nil }
func (s *stubEarningsRepo) CreateTransaction(context.Context, *dbmodels.Transaction) error { return nil }
func (s *stubEarningsRepo) FindTransactionByEnrollment(context.Context, uuid.UUID) (*dbmodels.Transaction, error) {
	return nil, nil
}
func (s *stubEarningsRepo) FindOrphanEnrollmentsBefore(context.Context, time.Time) ([]dbmodels.Enrollment, error) {
	return nil, nil
}
func (s *stubEarningsRepo) CountPaidOutMissingPayout(context.Context) (int64, error) { return 0, nil }
func (s *stubEarningsRepo) ListUnpaidTransactions(context.Context, uuid.UUID) ([]dbmodels.Transaction, error) {
	return nil, nil
}
func (s *stubEarningsRepo) CreatePayout(context.Context, *dbmodels.Payout) error { return nil }
func (s *stubEarningsRepo) MarkTransactionsPaidOut(context.Context, uuid.UUID, uuid.UUID) (int64, error) {
	return 0, nil
}

func TestService_ComputeEarnings(t *testing.T) {
	repo := &stubEarningsRepo{
		total:   decimal.RequireFromString("164.00"),
		pending: decimal.RequireFromString("24.00"),
		month:   decimal.RequireFromString("24.00"),
	}
	now := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)
	service, err := NewService(ServiceParams{LedgerRepo: repo, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	summary, err := service.ComputeEarnings(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("compute earnings: %v", err)
	}

	if !summary.TotalEarnings.Equal(decimal.RequireFromString("164.00")) {
		t.Fatalf("unexpected total %s", summary.TotalEarnings)
	}
	if !summary.PendingEarnings.Equal(decimal.RequireFromString("24.00")) {
		t.Fatalf("unexpected pending %s", summary.PendingEarnings)
	}
	if !summary.PaidEarnings.Equal(decimal.RequireFromString("140.00")) {
		t.Fatalf("paid must be total minus pending, got %s", summary.PaidEarnings)
	}
	if !summary.ThisMonth.Equal(decimal.RequireFromString("24.00")) {
		t.Fatalf("unexpected month total %s", summary.ThisMonth)
	}
	if want := date(2024, time.June, 3); !summary.NextPayoutDate.Equal(want) {
		t.Fatalf("unexpected next payout date %s", summary.NextPayoutDate.Format(time.DateOnly))
	}

	var sawMonthFilter bool
	for _, filter := range repo.filters {
		if filter.CreatedAfter != nil {
			sawMonthFilter = true
			if want := date(2024, time.May, 1); !filter.CreatedAfter.Equal(want) {
				t.Fatalf("month filter starts at %s", filter.CreatedAfter.Format(time.DateOnly))
			}
		}
	}
	if !sawMonthFilter {
		t.Fatalf("expected a month-scoped sum")
	}
}

func TestService_ComputeEarningsValidation(t *testing.T) {
	service, err := NewService(ServiceParams{LedgerRepo: &stubEarningsRepo{}})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	_, err = service.ComputeEarnings(context.Background(), uuid.Nil)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestService_ComputeEarningsStoreFailure(t *testing.T) {
	repo := &stubEarningsRepo{err: errors.New("connection refused")}
	service, err := NewService(ServiceParams{LedgerRepo: repo})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	_, err = service.ComputeEarnings(context.Background(), uuid.New())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !pkgerrors.IsRetryable(err) {
		t.Fatalf("store failures must be retryable")
	}
}

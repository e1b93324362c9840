package earnings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/learnloom/learnloom-backend/internal/ledger"
	pkgerrors "github.com/learnloom/learnloom-backend/pkg/errors"
)

// Summary is the instructor-facing earnings projection. Every figure is a
// direct sum over the transaction ledger so it can never drift from the
// records a payout batch would settle.
type Summary struct {
	TotalEarnings   decimal.Decimal `json:"totalEarnings"`
	PendingEarnings decimal.Decimal `json:"pendingEarnings"`
	PaidEarnings    decimal.Decimal `json:"paidEarnings"`
	ThisMonth       decimal.Decimal `json:"thisMonth"`
	NextPayoutDate  time.Time       `json:"nextPayoutDate"`
}

type ServiceParams struct {
	LedgerRepo ledger.Repository
	Now        func() time.Time
}

type Service struct {
	ledgerRepo ledger.Repository
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.LedgerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repo required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{ledgerRepo: params.LedgerRepo, now: now}, nil
}

// ComputeEarnings aggregates the instructor's completed transactions.
func (s *Service) ComputeEarnings(ctx context.Context, instructorID uuid.UUID) (*Summary, error) {
	if instructorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "instructor id is required")
	}

	total, err := s.ledgerRepo.SumEarnings(ctx, instructorID, ledger.EarningsFilter{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum total earnings")
	}
	pending, err := s.ledgerRepo.SumEarnings(ctx, instructorID, ledger.EarningsFilter{UnpaidOnly: true})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum pending earnings")
	}

	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	thisMonth, err := s.ledgerRepo.SumEarnings(ctx, instructorID, ledger.EarningsFilter{CreatedAfter: &monthStart})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum month earnings")
	}

	return &Summary{
		TotalEarnings:   total,
		PendingEarnings: pending,
		PaidEarnings:    total.Sub(pending),
		ThisMonth:       thisMonth,
		NextPayoutDate:  NextPayoutDate(now),
	}, nil
}

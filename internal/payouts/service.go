package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/learnloom/learnloom-backend/internal/ledger"
	"github.com/learnloom/learnloom-backend/pkg/db/models"
	"github.com/learnloom/learnloom-backend/pkg/enums"
	pkgerrors "github.com/learnloom/learnloom-backend/pkg/errors"
	"github.com/learnloom/learnloom-backend/pkg/logger"
	stripeclient "github.com/learnloom/learnloom-backend/pkg/stripe"
)

// AccountProvider provisions and inspects external payable accounts.
type AccountProvider interface {
	CreateAccount(ctx context.Context, instructorID uuid.UUID) (string, error)
	CreateOnboardingLink(ctx context.Context, accountID string) (string, error)
	GetAccountStatus(ctx context.Context, accountID string) (stripeclient.AccountStatus, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AccountDetails is the result of an ensure-account call.
type AccountDetails struct {
	AccountID     string `json:"accountId"`
	OnboardingURL string `json:"onboardingUrl"`
	IsOnboarded   bool   `json:"isOnboarded"`
}

// OnboardingStatus is the result of polling the external provider.
type OnboardingStatus struct {
	IsOnboarded    bool `json:"isOnboarded"`
	ChargesEnabled bool `json:"chargesEnabled"`
	PayoutsEnabled bool `json:"payoutsEnabled"`
}

// Batch describes a settled payout batch.
type Batch struct {
	PayoutID         uuid.UUID       `json:"payoutId"`
	InstructorID     uuid.UUID       `json:"instructorId"`
	Amount           decimal.Decimal `json:"amount"`
	TransactionCount int             `json:"transactionCount"`
}

type ServiceParams struct {
	PreferenceRepo    PreferenceRepository
	LedgerRepo        ledger.Repository
	Provider          AccountProvider
	TransactionRunner txRunner
	Logger            *logger.Logger
}

type Service struct {
	preferenceRepo PreferenceRepository
	ledgerRepo     ledger.Repository
	provider       AccountProvider
	txRunner       txRunner
	logg           *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.PreferenceRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "preference repo required")
	}
	if params.LedgerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repo required")
	}
	if params.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "account provider required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		preferenceRepo: params.PreferenceRepo,
		ledgerRepo:     params.LedgerRepo,
		provider:       params.Provider,
		txRunner:       params.TransactionRunner,
		logg:           params.Logger,
	}, nil
}

// EnsureAccount resolves the instructor's external payable account, creating
// it on first call, and returns a fresh onboarding link. Concurrent calls
// serialize on a locked preference row so exactly one external account is
// ever provisioned per instructor.
func (s *Service) EnsureAccount(ctx context.Context, instructorID uuid.UUID) (*AccountDetails, error) {
	if instructorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "instructor id is required")
	}

	var preference *models.PaymentPreference
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.preferenceRepo.WithTx(tx)

		placeholder := &models.PaymentPreference{
			ID:           uuid.New(),
			InstructorID: instructorID,
			Provider:     enums.PaymentProviderStripe,
		}
		if err := repo.InsertPlaceholder(ctx, placeholder); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert payment preference")
		}

		locked, err := repo.FindByInstructorForUpdate(ctx, instructorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment preference")
		}
		if locked == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "payment preference vanished after insert")
		}

		if locked.ExternalAccountID == "" {
			accountID, err := s.provider.CreateAccount(ctx, instructorID)
			if err != nil {
				return err
			}
			locked.ExternalAccountID = accountID
			if err := repo.Update(ctx, locked); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store external account id")
			}
		}

		preference = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	link, err := s.provider.CreateOnboardingLink(ctx, preference.ExternalAccountID)
	if err != nil {
		return nil, err
	}
	return &AccountDetails{
		AccountID:     preference.ExternalAccountID,
		OnboardingURL: link,
		IsOnboarded:   preference.IsOnboarded,
	}, nil
}

// RefreshOnboardingStatus polls the provider and marks the instructor
// onboarded once both capabilities are enabled. The flag never flips back,
// even if the provider later reports a capability as disabled.
func (s *Service) RefreshOnboardingStatus(ctx context.Context, instructorID uuid.UUID) (*OnboardingStatus, error) {
	if instructorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "instructor id is required")
	}

	preference, err := s.preferenceRepo.FindByInstructor(ctx, instructorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment preference")
	}
	if preference == nil || preference.ExternalAccountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payout account for instructor")
	}

	status, err := s.provider.GetAccountStatus(ctx, preference.ExternalAccountID)
	if err != nil {
		return nil, err
	}

	onboarded := preference.IsOnboarded
	if !onboarded && status.ChargesEnabled && status.PayoutsEnabled {
		flipped, err := s.preferenceRepo.MarkOnboarded(ctx, instructorID, time.Now().UTC())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark onboarded")
		}
		onboarded = true
		if flipped && s.logg != nil {
			s.logg.Info(s.logg.WithInstructorID(ctx, instructorID.String()), "instructor onboarding completed")
		}
	}

	return &OnboardingStatus{
		IsOnboarded:    onboarded,
		ChargesEnabled: status.ChargesEnabled,
		PayoutsEnabled: status.PayoutsEnabled,
	}, nil
}

// InitiatePayout settles every unpaid completed transaction for the
// instructor into one payout batch. The guarded paid_out update makes the
// batch idempotent: a concurrent initiation marks zero rows and aborts
// without writing a payout.
func (s *Service) InitiatePayout(ctx context.Context, instructorID uuid.UUID) (*Batch, error) {
	if instructorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "instructor id is required")
	}

	preference, err := s.preferenceRepo.FindByInstructor(ctx, instructorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment preference")
	}
	if preference == nil || !preference.IsOnboarded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "instructor has not completed payout onboarding")
	}

	var batch *Batch
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ledgerRepo.WithTx(tx)

		unpaid, err := repo.ListUnpaidTransactions(ctx, instructorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unpaid transactions")
		}
		if len(unpaid) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no unpaid earnings to settle")
		}

		amount := decimal.Zero
		for _, transaction := range unpaid {
			amount = amount.Add(transaction.InstructorEarnings)
		}

		payout := &models.Payout{
			ID:               uuid.New(),
			InstructorID:     instructorID,
			Amount:           amount,
			TransactionCount: len(unpaid),
		}
		if err := repo.CreatePayout(ctx, payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
		}

		marked, err := repo.MarkTransactionsPaidOut(ctx, instructorID, payout.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark transactions paid")
		}
		if marked != int64(len(unpaid)) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "unpaid transactions changed during settlement")
		}

		batch = &Batch{
			PayoutID:         payout.ID,
			InstructorID:     instructorID,
			Amount:           amount,
			TransactionCount: len(unpaid),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithInstructorID(ctx, instructorID.String()), "payout batch settled")
	}
	return batch, nil
}

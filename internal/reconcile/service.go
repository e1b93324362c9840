package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/learnloom/learnloom-backend/internal/ledger"
	"github.com/learnloom/learnloom-backend/pkg/db"
	dbmodels "github.com/learnloom/learnloom-backend/pkg/db/models"
	"github.com/learnloom/learnloom-backend/pkg/enums"
	pkgerrors "github.com/learnloom/learnloom-backend/pkg/errors"
	"github.com/learnloom/learnloom-backend/pkg/logger"
)

// amountTolerance absorbs rounding differences between the checkout flow's
// fee split and a recomputation from the commission rate.
var amountTolerance = decimal.RequireFromString("0.01")

// Payment carries the verified facts of a completed checkout.
type Payment struct {
	EventID            string
	PaymentReferenceID string
	StudentID          uuid.UUID
	CourseID           uuid.UUID
	InstructorID       uuid.UUID
	TotalAmount        decimal.Decimal
	PlatformFee        decimal.Decimal
	InstructorEarnings decimal.Decimal
	CommissionRate     decimal.Decimal
}

// Outcome reports what a reconcile attempt did. Skipped means another
// delivery already committed the same enrollment.
type Outcome struct {
	Enrollment  *dbmodels.Enrollment
	Transaction *dbmodels.Transaction
	Skipped     bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	LedgerRepo        ledger.Repository
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// Service turns completed payments into an enrollment plus its money record,
// atomically and exactly once per (student, course).
type Service struct {
	ledgerRepo ledger.Repository
	txRunner   txRunner
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.LedgerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		ledgerRepo: params.LedgerRepo,
		txRunner:   params.TransactionRunner,
		logg:       params.Logger,
	}, nil
}

// Reconcile records the payment as an enrollment and transaction in one
// database transaction. Duplicate deliveries surface as a unique-constraint
// violation on commit and come back as a skipped outcome, not an error: the
// constraint, not a prior read, decides who won.
func (s *Service) Reconcile(ctx context.Context, payment *Payment) (*Outcome, error) {
	if err := validatePayment(payment); err != nil {
		return nil, err
	}

	enrollment := &dbmodels.Enrollment{
		ID:                 uuid.New(),
		StudentID:          payment.StudentID,
		CourseID:           payment.CourseID,
		PaymentMethod:      enums.PaymentMethodCard,
		PaymentReferenceID: payment.PaymentReferenceID,
		AmountPaid:         payment.TotalAmount,
	}
	transaction := &dbmodels.Transaction{
		ID:                 uuid.New(),
		EnrollmentID:       enrollment.ID,
		CourseID:           payment.CourseID,
		InstructorID:       payment.InstructorID,
		StudentID:          payment.StudentID,
		PaymentProvider:    enums.PaymentProviderStripe,
		PaymentReferenceID: payment.PaymentReferenceID,
		TotalAmount:        payment.TotalAmount,
		PlatformFee:        payment.PlatformFee,
		InstructorEarnings: payment.InstructorEarnings,
		CommissionRate:     payment.CommissionRate,
		Status:             enums.TransactionStatusCompleted,
		PaidOut:            false,
	}

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ledgerRepo.WithTx(tx)
		if err := repo.CreateEnrollment(ctx, enrollment); err != nil {
			return err
		}
		return repo.CreateTransaction(ctx, transaction)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			if s.logg != nil {
				logCtx := s.logg.WithStudentID(ctx, payment.StudentID.String())
				logCtx = s.logg.WithCourseID(logCtx, payment.CourseID.String())
				s.logg.Info(logCtx, "payment already reconciled, skipping")
			}
			return &Outcome{Skipped: true}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit enrollment and transaction")
	}

	return &Outcome{Enrollment: enrollment, Transaction: transaction}, nil
}

// RecordFreeEnrollment grants course access without a money record. Free
// enrollments carry a zero amount and never feed earnings.
func (s *Service) RecordFreeEnrollment(ctx context.Context, studentID, courseID uuid.UUID) (*Outcome, error) {
	if studentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "student id is required")
	}
	if courseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course id is required")
	}

	enrollment := &dbmodels.Enrollment{
		ID:            uuid.New(),
		StudentID:     studentID,
		CourseID:      courseID,
		PaymentMethod: enums.PaymentMethodFree,
		AmountPaid:    decimal.Zero,
	}
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.ledgerRepo.WithTx(tx).CreateEnrollment(ctx, enrollment)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return &Outcome{Skipped: true}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit free enrollment")
	}
	return &Outcome{Enrollment: enrollment}, nil
}

func validatePayment(payment *Payment) error {
	if payment == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment is required")
	}
	if payment.PaymentReferenceID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	for name, id := range map[string]uuid.UUID{
		"student id":    payment.StudentID,
		"course id":     payment.CourseID,
		"instructor id": payment.InstructorID,
	} {
		if id == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is required", name))
		}
	}
	if payment.TotalAmount.IsNegative() || payment.PlatformFee.IsNegative() || payment.InstructorEarnings.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amounts must be non-negative")
	}
	if payment.CommissionRate.IsNegative() || payment.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "commission rate must be between 0 and 1")
	}

	// the split must account for every cent of the charge
	if !payment.PlatformFee.Add(payment.InstructorEarnings).Equal(payment.TotalAmount) {
		return pkgerrors.New(pkgerrors.CodeValidation, "platform fee and instructor earnings do not sum to total")
	}

	expectedFee := payment.TotalAmount.Mul(payment.CommissionRate).Round(2)
	if payment.PlatformFee.Sub(expectedFee).Abs().GreaterThan(amountTolerance) {
		return pkgerrors.New(pkgerrors.CodeValidation, "platform fee inconsistent with commission rate")
	}
	return nil
}

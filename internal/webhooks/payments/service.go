package paymentwebhook

import (
	"context"

	"github.com/learnloom/learnloom-backend/internal/reconcile"
	pkgerrors "github.com/learnloom/learnloom-backend/pkg/errors"
	"github.com/learnloom/learnloom-backend/pkg/logger"
)

type reconciler interface {
	Reconcile(ctx context.Context, payment *reconcile.Payment) (*reconcile.Outcome, error)
}

type ServiceParams struct {
	Reconciler reconciler
	Logger     *logger.Logger
}

// Service routes provider webhook events into the ledger pipeline.
type Service struct {
	reconciler reconciler
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler required")
	}
	return &Service{
		reconciler: params.Reconciler,
		logg:       params.Logger,
	}, nil
}

// HandleEvent processes a verified event. Event types the pipeline does not
// consume are acknowledged without work so the provider stops redelivering
// them.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event is required")
	}

	switch event.Type {
	case EventTypeCheckoutCompleted:
		checkout, err := ParseCheckoutCompleted(event)
		if err != nil {
			return err
		}
		outcome, err := s.reconciler.Reconcile(ctx, &reconcile.Payment{
			EventID:            checkout.EventID,
			PaymentReferenceID: checkout.PaymentReferenceID,
			StudentID:          checkout.StudentID,
			CourseID:           checkout.CourseID,
			InstructorID:       checkout.InstructorID,
			TotalAmount:        checkout.TotalAmount,
			PlatformFee:        checkout.PlatformFee,
			InstructorEarnings: checkout.InstructorEarnings,
			CommissionRate:     checkout.CommissionRate,
		})
		if err != nil {
			return err
		}
		if s.logg != nil {
			logCtx := s.logg.WithEventID(ctx, checkout.EventID)
			if outcome.Skipped {
				s.logg.Info(logCtx, "checkout already reconciled")
			} else {
				s.logg.Info(logCtx, "checkout reconciled")
			}
		}
		return nil
	default:
		if s.logg != nil {
			s.logg.Info(s.logg.WithEventID(ctx, event.ID), "ignoring unhandled event type "+event.Type)
		}
		return nil
	}
}

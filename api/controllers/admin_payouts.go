package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/learnloom/learnloom-backend/api/responses"
	"github.com/learnloom/learnloom-backend/api/validators"
	"github.com/learnloom/learnloom-backend/internal/payouts"
	pkgerrors "github.com/learnloom/learnloom-backend/pkg/errors"
	"github.com/learnloom/learnloom-backend/pkg/logger"
)

type PayoutInitiationService interface {
	InitiatePayout(ctx context.Context, instructorID uuid.UUID) (*payouts.Batch, error)
}

type adminPayoutRequest struct {
	InstructorID string `json:"instructorId" validate:"required,uuid"`
}

// AdminInitiatePayout settles an instructor's unpaid earnings into a batch.
func AdminInitiatePayout(svc PayoutInitiationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		var body adminPayoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		instructorID, err := uuid.Parse(body.InstructorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid instructor id"))
			return
		}

		batch, err := svc.InitiatePayout(r.Context(), instructorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, batch)
	}
}

package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/learnloom/learnloom-backend/api/middleware"
	"github.com/learnloom/learnloom-backend/api/responses"
	"github.com/learnloom/learnloom-backend/internal/earnings"
	pkgerrors "github.com/learnloom/learnloom-backend/pkg/errors"
	"github.com/learnloom/learnloom-backend/pkg/logger"
)

type EarningsService interface {
	ComputeEarnings(ctx context.Context, instructorID uuid.UUID) (*earnings.Summary, error)
}

// InstructorEarnings returns the authenticated instructor's earnings summary.
func InstructorEarnings(svc EarningsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings service unavailable"))
			return
		}

		instructorID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "instructor context missing"))
			return
		}

		summary, err := svc.ComputeEarnings(r.Context(), instructorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// AdminInstructorEarnings returns any instructor's earnings summary.
func AdminInstructorEarnings(svc EarningsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings service unavailable"))
			return
		}

		instructorID, err := uuid.Parse(chi.URLParam(r, "instructorID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid instructor id"))
			return
		}

		summary, err := svc.ComputeEarnings(r.Context(), instructorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/learnloom/learnloom-backend/api/middleware"
	"github.com/learnloom/learnloom-backend/api/responses"
	"github.com/learnloom/learnloom-backend/internal/payouts"
	pkgerrors "github.com/learnloom/learnloom-backend/pkg/errors"
	"github.com/learnloom/learnloom-backend/pkg/logger"
)

type PayoutAccountService interface {
	EnsureAccount(ctx context.Context, instructorID uuid.UUID) (*payouts.AccountDetails, error)
	RefreshOnboardingStatus(ctx context.Context, instructorID uuid.UUID) (*payouts.OnboardingStatus, error)
}

// CreatePayoutAccount resolves the instructor's external payable account and
// returns a fresh onboarding link. Safe to call repeatedly.
func CreatePayoutAccount(svc PayoutAccountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		instructorID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "instructor context missing"))
			return
		}

		details, err := svc.EnsureAccount(r.Context(), instructorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, details)
	}
}

// RefreshPayoutAccount polls the external provider for onboarding progress.
func RefreshPayoutAccount(svc PayoutAccountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		instructorID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "instructor context missing"))
			return
		}

		status, err := svc.RefreshOnboardingStatus(r.Context(), instructorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

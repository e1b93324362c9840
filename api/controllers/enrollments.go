package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/learnloom/learnloom-backend/api/middleware"
	"github.com/learnloom/learnloom-backend/api/responses"
	"github.com/learnloom/learnloom-backend/api/validators"
	"github.com/learnloom/learnloom-backend/internal/reconcile"
	pkgerrors "github.com/learnloom/learnloom-backend/pkg/errors"
	"github.com/learnloom/learnloom-backend/pkg/logger"
)

type FreeEnrollmentService interface {
	RecordFreeEnrollment(ctx context.Context, studentID, courseID uuid.UUID) (*reconcile.Outcome, error)
}

type freeEnrollmentRequest struct {
	CourseID string `json:"courseId" validate:"required,uuid"`
}

type freeEnrollmentResponse struct {
	EnrollmentID    string `json:"enrollmentId,omitempty"`
	AlreadyEnrolled bool   `json:"alreadyEnrolled"`
}

// FreeEnrollment grants the authenticated student access to a free course.
// Re-enrolling is a no-op, not an error.
func FreeEnrollment(svc FreeEnrollmentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "enrollment service unavailable"))
			return
		}

		studentID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "student context missing"))
			return
		}

		var body freeEnrollmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		courseID, err := uuid.Parse(body.CourseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid course id"))
			return
		}

		outcome, err := svc.RecordFreeEnrollment(r.Context(), studentID, courseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if outcome.Skipped {
			responses.WriteSuccess(w, freeEnrollmentResponse{AlreadyEnrolled: true})
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, freeEnrollmentResponse{
			EnrollmentID: outcome.Enrollment.ID.String(),
		})
	}
}

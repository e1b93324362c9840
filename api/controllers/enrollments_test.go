package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/learnloom/learnloom-backend/api/middleware"
	"github.com/learnloom/learnloom-backend/internal/reconcile"
	"github.com/learnloom/learnloom-backend/pkg/db/models"
	"github.com/learnloom/learnloom-backend/pkg/types"
)

type fakeEnrollmentService struct {
	outcome    *reconcile.Outcome
	err        error
	lastCourse uuid.UUID
}

func (f *fakeEnrollmentService) RecordFreeEnrollment(_ context.Context, _, courseID uuid.UUID) (*reconcile.Outcome, error) {
	f.lastCourse = courseID
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

func postFreeEnrollment(handler http.HandlerFunc, studentID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/enrollments/free", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if studentID != "" {
		req = req.WithContext(middleware.WithUserID(req.Context(), studentID))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestFreeEnrollmentCreated(t *testing.T) {
	enrollmentID := uuid.New()
	courseID := uuid.New()
	svc := &fakeEnrollmentService{outcome: &reconcile.Outcome{
		Enrollment: &models.Enrollment{ID: enrollmentID},
	}}
	handler := FreeEnrollment(svc, nil)

	rec := postFreeEnrollment(handler, uuid.NewString(), `{"courseId":"`+courseID.String()+`"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.lastCourse != courseID {
		t.Fatalf("expected course %s, got %s", courseID, svc.lastCourse)
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data := envelope.Data.(map[string]any)
	if data["enrollmentId"] != enrollmentID.String() {
		t.Fatalf("unexpected enrollment id %v", data["enrollmentId"])
	}
}

func TestFreeEnrollmentAlreadyEnrolled(t *testing.T) {
	svc := &fakeEnrollmentService{outcome: &reconcile.Outcome{Skipped: true}}
	handler := FreeEnrollment(svc, nil)

	rec := postFreeEnrollment(handler, uuid.NewString(), `{"courseId":"`+uuid.NewString()+`"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data := envelope.Data.(map[string]any)
	if data["alreadyEnrolled"] != true {
		t.Fatalf("expected alreadyEnrolled flag, got %v", data["alreadyEnrolled"])
	}
}

func TestFreeEnrollmentBadRequests(t *testing.T) {
	cases := []struct {
		name      string
		studentID string
		body      string
		want      int
	}{
		{name: "missing student context", studentID: "", body: `{"courseId":"` + uuid.NewString() + `"}`, want: http.StatusUnauthorized},
		{name: "missing course id", studentID: uuid.NewString(), body: `{}`, want: http.StatusBadRequest},
		{name: "malformed course id", studentID: uuid.NewString(), body: `{"courseId":"not-a-uuid"}`, want: http.StatusBadRequest},
		{name: "unknown field", studentID: uuid.NewString(), body: `{"courseId":"` + uuid.NewString() + `","bonus":true}`, want: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeEnrollmentService{outcome: &reconcile.Outcome{Skipped: true}}
			rec := postFreeEnrollment(FreeEnrollment(svc, nil), tc.studentID, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d (%s)", tc.want, rec.Code, rec.Body.String())
			}
			if svc.lastCourse != uuid.Nil {
				t.Fatalf("service should not have been called")
			}
		})
	}
}

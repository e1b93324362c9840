package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/learnloom/learnloom-backend/api/middleware"
	"github.com/learnloom/learnloom-backend/internal/payouts"
	pkgerrors "github.com/learnloom/learnloom-backend/pkg/errors"
	"github.com/learnloom/learnloom-backend/pkg/types"
)

type fakePayoutAccountService struct {
	details *payouts.AccountDetails
	status  *payouts.OnboardingStatus
	err     error
}

func (f *fakePayoutAccountService) EnsureAccount(_ context.Context, _ uuid.UUID) (*payouts.AccountDetails, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.details, nil
}

func (f *fakePayoutAccountService) RefreshOnboardingStatus(_ context.Context, _ uuid.UUID) (*payouts.OnboardingStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.status, nil
}

type fakePayoutInitiationService struct {
	batch  *payouts.Batch
	err    error
	lastID uuid.UUID
}

func (f *fakePayoutInitiationService) InitiatePayout(_ context.Context, instructorID uuid.UUID) (*payouts.Batch, error) {
	f.lastID = instructorID
	if f.err != nil {
		return nil, f.err
	}
	return f.batch, nil
}

func TestCreatePayoutAccount(t *testing.T) {
	svc := &fakePayoutAccountService{details: &payouts.AccountDetails{
		AccountID:     "acct_123",
		OnboardingURL: "https://connect.example/onboard/acct_123",
	}}
	handler := CreatePayoutAccount(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/instructors/me/payout-account", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data := envelope.Data.(map[string]any)
	if data["accountId"] != "acct_123" {
		t.Fatalf("unexpected account id %v", data["accountId"])
	}
	if data["onboardingUrl"] == "" {
		t.Fatalf("expected onboarding url in response")
	}
}

func TestCreatePayoutAccountMissingContext(t *testing.T) {
	handler := CreatePayoutAccount(&fakePayoutAccountService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/instructors/me/payout-account", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRefreshPayoutAccount(t *testing.T) {
	svc := &fakePayoutAccountService{status: &payouts.OnboardingStatus{
		IsOnboarded:    true,
		ChargesEnabled: true,
		PayoutsEnabled: true,
	}}
	handler := RefreshPayoutAccount(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/instructors/me/payout-account/refresh", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data := envelope.Data.(map[string]any)
	if data["isOnboarded"] != true {
		t.Fatalf("expected isOnboarded true, got %v", data["isOnboarded"])
	}
}

func TestRefreshPayoutAccountNotFound(t *testing.T) {
	svc := &fakePayoutAccountService{err: pkgerrors.New(pkgerrors.CodeNotFound, "no payout account on file")}
	handler := RefreshPayoutAccount(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/instructors/me/payout-account/refresh", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAdminInitiatePayout(t *testing.T) {
	instructorID := uuid.New()
	svc := &fakePayoutInitiationService{batch: &payouts.Batch{
		PayoutID:         uuid.New(),
		InstructorID:     instructorID,
		Amount:           decimal.RequireFromString("64.00"),
		TransactionCount: 2,
	}}
	handler := AdminInitiatePayout(svc, nil)

	body := `{"instructorId":"` + instructorID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payouts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.lastID != instructorID {
		t.Fatalf("expected service called with %s, got %s", instructorID, svc.lastID)
	}
}

func TestAdminInitiatePayoutRejections(t *testing.T) {
	t.Run("invalid body", func(t *testing.T) {
		svc := &fakePayoutInitiationService{}
		req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payouts", strings.NewReader(`{"instructorId":"nope"}`))
		rec := httptest.NewRecorder()
		AdminInitiatePayout(svc, nil).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if svc.lastID != uuid.Nil {
			t.Fatalf("service should not have been called")
		}
	})

	t.Run("nothing to settle", func(t *testing.T) {
		svc := &fakePayoutInitiationService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "no unpaid earnings")}
		body := `{"instructorId":"` + uuid.NewString() + `"}`
		req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payouts", strings.NewReader(body))
		rec := httptest.NewRecorder()
		AdminInitiatePayout(svc, nil).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})
}

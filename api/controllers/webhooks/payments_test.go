package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	paymentwebhook "github.com/learnloom/learnloom-backend/internal/webhooks/payments"
	pkgerrors "github.com/learnloom/learnloom-backend/pkg/errors"
)

const webhookSecret = "whsec_controller_test"

type fakePaymentService struct {
	calls int
	err   error
}

func (f *fakePaymentService) HandleEvent(context.Context, *paymentwebhook.Event) error {
	f.calls++
	return f.err
}

type fakeSigningClient struct {
	secret string
}

func (f *fakeSigningClient) SigningSecret() string { return f.secret }

type inMemoryStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{keys: map[string]string{}}
}

func (s *inMemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *inMemoryStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keys[key]; exists {
		return false, nil
	}
	s.keys[key] = "1"
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return "ll:idempotency:" + scope + ":" + id
}

func (s *inMemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

func buildCheckoutEvent(t *testing.T) []byte {
	t.Helper()
	event := &paymentwebhook.Event{
		ID:   "evt_" + uuid.NewString(),
		Type: paymentwebhook.EventTypeCheckoutCompleted,
		Data: paymentwebhook.EventData{Object: paymentwebhook.CheckoutObject{
			ID:            "cs_" + uuid.NewString(),
			PaymentIntent: "pi_" + uuid.NewString(),
			Metadata: map[string]string{
				"student_id":          uuid.NewString(),
				"course_id":           uuid.NewString(),
				"instructor_id":       uuid.NewString(),
				"total_amount":        "50.00",
				"platform_fee":        "10.00",
				"instructor_earnings": "40.00",
				"commission_rate":     "0.20",
			},
		}},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

func newWebhookHandler(t *testing.T, service *fakePaymentService) (http.HandlerFunc, *inMemoryStore) {
	t.Helper()
	store := newInMemoryStore()
	guard, err := paymentwebhook.NewIdempotencyGuard(store, time.Minute, "payments")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return PaymentsWebhook(service, &fakeSigningClient{secret: webhookSecret}, guard, 5*time.Minute, nil), store
}

func postEvent(handler http.HandlerFunc, payload []byte, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(payload))
	if header != "" {
		req.Header.Set(paymentwebhook.SignatureHeader, header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPaymentsWebhook_SuccessAndIdempotent(t *testing.T) {
	payload := buildCheckoutEvent(t)
	header := paymentwebhook.SignPayload(payload, webhookSecret, time.Now())
	service := &fakePaymentService{}
	handler, _ := newWebhookHandler(t, service)

	rec := postEvent(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}

	rec = postEvent(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d", rec.Code)
	}
	if service.calls != 1 {
		t.Fatalf("duplicate should not increment calls, got %d", service.calls)
	}
}

func TestPaymentsWebhook_SignatureFailures(t *testing.T) {
	payload := buildCheckoutEvent(t)
	service := &fakePaymentService{}
	handler, _ := newWebhookHandler(t, service)

	cases := map[string]string{
		"missing header": "",
		"garbage header": "t=abc,v1=zz",
		"wrong secret":   paymentwebhook.SignPayload(payload, "whsec_other", time.Now()),
		"stale":          paymentwebhook.SignPayload(payload, webhookSecret, time.Now().Add(-time.Hour)),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rec := postEvent(handler, payload, header)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
	if service.calls != 0 {
		t.Fatalf("service must not be invoked on signature failure")
	}
}

func TestPaymentsWebhook_MalformedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1",`)
	header := paymentwebhook.SignPayload(payload, webhookSecret, time.Now())
	service := &fakePaymentService{}
	handler, _ := newWebhookHandler(t, service)

	rec := postEvent(handler, payload, header)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed payload, got %d", rec.Code)
	}
}

func TestPaymentsWebhook_TransientFailureAllowsRedelivery(t *testing.T) {
	payload := buildCheckoutEvent(t)
	header := paymentwebhook.SignPayload(payload, webhookSecret, time.Now())
	service := &fakePaymentService{err: pkgerrors.New(pkgerrors.CodeDependency, "store unavailable")}
	handler, _ := newWebhookHandler(t, service)

	rec := postEvent(handler, payload, header)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	// the provider redelivers; the event must not be short-circuited
	service.err = nil
	rec = postEvent(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on redelivery, got %d", rec.Code)
	}
	if service.calls != 2 {
		t.Fatalf("expected redelivery to reach the service, got %d calls", service.calls)
	}
}

func TestPaymentsWebhook_PermanentFailureStaysMarked(t *testing.T) {
	payload := buildCheckoutEvent(t)
	header := paymentwebhook.SignPayload(payload, webhookSecret, time.Now())
	service := &fakePaymentService{err: pkgerrors.New(pkgerrors.CodeValidation, "broken metadata")}
	handler, _ := newWebhookHandler(t, service)

	rec := postEvent(handler, payload, header)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	// a redelivery of the same permanently rejected event short-circuits
	rec = postEvent(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 acknowledgement on redelivery, got %d", rec.Code)
	}
	if service.calls != 1 {
		t.Fatalf("permanently rejected event must not be reprocessed, got %d calls", service.calls)
	}
}

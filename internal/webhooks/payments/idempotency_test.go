package paymentwebhook

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeIdempotencyStore struct {
	keys     map[string]string
	setNXErr error
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: map[string]string{}}
}

func (f *fakeIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	return f.keys[key], nil
}

func (f *fakeIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if f.setNXErr != nil {
		return false, f.setNXErr
	}
	if _, exists := f.keys[key]; exists {
		return false, nil
	}
	f.keys[key] = "1"
	return true, nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "ll:idempotency:" + scope + ":" + id
}

func (f *fakeIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func TestIdempotencyGuardMarksFirstDelivery(t *testing.T) {
	guard, err := NewIdempotencyGuard(newFakeIdempotencyStore(), time.Hour, "payments")
	if err != nil {
		t.Fatalf("setup guard: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("check and mark: %v", err)
	}
	if seen {
		t.Fatalf("first delivery reported as duplicate")
	}

	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("check and mark: %v", err)
	}
	if !seen {
		t.Fatalf("redelivery not reported as duplicate")
	}
}

func TestIdempotencyGuardDeleteAllowsRetry(t *testing.T) {
	guard, err := NewIdempotencyGuard(newFakeIdempotencyStore(), time.Hour, "payments")
	if err != nil {
		t.Fatalf("setup guard: %v", err)
	}
	ctx := context.Background()

	if _, err := guard.CheckAndMark(ctx, "evt_1"); err != nil {
		t.Fatalf("check and mark: %v", err)
	}
	if err := guard.Delete(ctx, "evt_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	seen, err := guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatalf("check and mark: %v", err)
	}
	if seen {
		t.Fatalf("unmarked event still reported as duplicate")
	}
}

func TestIdempotencyGuardStoreFailure(t *testing.T) {
	store := newFakeIdempotencyStore()
	store.setNXErr = errors.New("redis down")
	guard, err := NewIdempotencyGuard(store, time.Hour, "payments")
	if err != nil {
		t.Fatalf("setup guard: %v", err)
	}

	if _, err := guard.CheckAndMark(context.Background(), "evt_1"); err == nil {
		t.Fatalf("expected store failure to surface")
	}
}

func TestIdempotencyGuardValidation(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Hour, "payments"); err == nil {
		t.Fatalf("nil store accepted")
	}
	if _, err := NewIdempotencyGuard(newFakeIdempotencyStore(), -time.Hour, "payments"); err == nil {
		t.Fatalf("negative ttl accepted")
	}
	if _, err := NewIdempotencyGuard(newFakeIdempotencyStore(), time.Hour, ""); err == nil {
		t.Fatalf("empty scope accepted")
	}

	guard, err := NewIdempotencyGuard(newFakeIdempotencyStore(), time.Hour, "payments")
	if err != nil {
		t.Fatalf("setup guard: %v", err)
	}
	if _, err := guard.CheckAndMark(context.Background(), ""); err == nil {
		t.Fatalf("empty event id accepted")
	}
	if err := guard.Delete(context.Background(), ""); err == nil {
		t.Fatalf("empty event id accepted for delete")
	}
}

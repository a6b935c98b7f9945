package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shulepay/backend/internal/domain/shared"
)

type fakeStore struct {
	mu     sync.Mutex
	marked map[string]bool
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{marked: make(map[string]bool)}
}

func (s *fakeStore) MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.marked[id] {
		return false, nil
	}
	s.marked[id] = true
	return true, nil
}

func (s *fakeStore) IsProcessed(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marked[id], s.err
}

func (s *fakeStore) Close() error { return nil }

func TestIdempotentHandler_ProcessesOnce(t *testing.T) {
	inner := newTestHandler("PaymentRecorded")
	store := newFakeStore()
	handler := NewIdempotentHandler(inner, store, shared.DefaultIdempotencyConfig(), zap.NewNop())

	event := newTestEvent("PaymentRecorded", uuid.New())

	require.NoError(t, handler.Handle(context.Background(), event))
	require.NoError(t, handler.Handle(context.Background(), event))

	assert.Len(t, inner.getHandled(), 1, "second delivery should be skipped")
}

func TestIdempotentHandler_DistinctEvents(t *testing.T) {
	inner := newTestHandler("PaymentRecorded")
	store := newFakeStore()
	handler := NewIdempotentHandler(inner, store, shared.DefaultIdempotencyConfig(), zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), newTestEvent("PaymentRecorded", uuid.New())))
	require.NoError(t, handler.Handle(context.Background(), newTestEvent("PaymentRecorded", uuid.New())))

	assert.Len(t, inner.getHandled(), 2)
}

func TestIdempotentHandler_StoreErrorProcessesAnyway(t *testing.T) {
	inner := newTestHandler("PaymentRecorded")
	store := newFakeStore()
	store.err = errors.New("redis down")
	handler := NewIdempotentHandler(inner, store, shared.DefaultIdempotencyConfig(), zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), newTestEvent("PaymentRecorded", uuid.New())))

	assert.Len(t, inner.getHandled(), 1, "store failure must not drop the event")
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	inner := newTestHandler("PaymentRecorded")
	store := newFakeStore()
	config := shared.IdempotencyConfig{Enabled: false}
	handler := NewIdempotentHandler(inner, store, config, zap.NewNop())

	event := newTestEvent("PaymentRecorded", uuid.New())
	require.NoError(t, handler.Handle(context.Background(), event))
	require.NoError(t, handler.Handle(context.Background(), event))

	assert.Len(t, inner.getHandled(), 2, "disabled checking processes every delivery")
}

func TestIdempotentHandler_EventTypes(t *testing.T) {
	inner := newTestHandler("InvoiceIssued", "InvoicePaid")
	handler := NewIdempotentHandler(inner, newFakeStore(), shared.DefaultIdempotencyConfig(), zap.NewNop())

	assert.Equal(t, []string{"InvoiceIssued", "InvoicePaid"}, handler.EventTypes())
}

package feedback

import (
	"context"
	"sync"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
)

// PendingStore keeps feedback that was not accepted by the trace store.
type PendingStore interface {
	Add(ctx context.Context, record model.FeedbackRecord) error
	List(ctx context.Context) ([]model.FeedbackRecord, error)
}

// MemoryPendingStore is the in-process pending collection, insertion ordered.
type MemoryPendingStore struct {
	mu      sync.Mutex
	records []model.FeedbackRecord
}

func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{}
}

func (s *MemoryPendingStore) Add(_ context.Context, record model.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *MemoryPendingStore) List(_ context.Context) ([]model.FeedbackRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.FeedbackRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

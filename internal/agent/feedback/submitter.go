package feedback

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/tracing"
	logx "github.com/Chative-core-poc-v1/chatcli/pkg/logger"
)

// Client is the remote side of feedback submission.
type Client interface {
	CreateFeedback(ctx context.Context, in tracing.FeedbackInput) (string, error)
}

// ClientFactory builds a Client on demand. It is called lazily and again once
// after a failed write.
type ClientFactory func() (Client, error)

// Request is a parsed rating plus whatever trace context the caller has.
type Request struct {
	Rating   model.Rating
	Key      string
	TraceID  string
	ThreadID string
}

// Result is always populated; Submitted tells whether the trace store accepted it.
type Result struct {
	Record    model.FeedbackRecord
	Submitted bool
	ID        string
	Message   string
}

// Submitter attaches ratings to remote traces and falls back to a pending store.
type Submitter struct {
	key     string
	factory ClientFactory
	pending PendingStore
	now     func() time.Time

	mu     sync.Mutex
	client Client
}

// NewSubmitter builds a submitter. A nil factory means no remote store is configured.
func NewSubmitter(cfg model.FeedbackConfig, factory ClientFactory, pending PendingStore) *Submitter {
	key := strings.TrimSpace(cfg.Key)
	if key == "" {
		key = model.DefaultFeedbackKey
	}
	if pending == nil {
		pending = NewMemoryPendingStore()
	}
	return &Submitter{key: key, factory: factory, pending: pending, now: time.Now}
}

// Submit never fails: remote errors downgrade to local storage and are only logged.
func (s *Submitter) Submit(ctx context.Context, req Request) Result {
	key := strings.TrimSpace(req.Key)
	if key == "" {
		key = s.key
	}
	record := model.FeedbackRecord{
		Rating:    req.Rating.Score,
		Comment:   req.Rating.Comment,
		Key:       key,
		TraceID:   ResolveTraceID(ctx, req.TraceID, req.ThreadID),
		ThreadID:  req.ThreadID,
		Timestamp: s.now().UTC(),
	}

	if s.factory != nil {
		if id, err := s.submitRemote(ctx, record); err == nil {
			record.ID = id
			record.Submitted = true
			logx.Info().
				Str("feedback_id", id).
				Str("trace_id", record.TraceID).
				Int("rating", record.Rating).
				Msg("feedback submitted")
			return Result{
				Record:    record,
				Submitted: true,
				ID:        id,
				Message:   fmt.Sprintf("Thanks! Your %s rating was recorded.", describe(record.Rating)),
			}
		} else {
			logx.Warn().Err(err).Str("trace_id", record.TraceID).Msg("remote feedback failed; storing locally")
		}
	}

	record.ID = uuid.NewString()
	record.Submitted = false
	if err := s.pending.Add(ctx, record); err != nil {
		logx.Warn().Err(err).Str("feedback_id", record.ID).Msg("failed to store pending feedback")
	}
	return Result{
		Record:    record,
		Submitted: false,
		ID:        record.ID,
		Message:   fmt.Sprintf("Thanks! Your %s rating was saved locally.", describe(record.Rating)),
	}
}

// Pending lists feedback kept locally.
func (s *Submitter) Pending(ctx context.Context) ([]model.FeedbackRecord, error) {
	return s.pending.List(ctx)
}

// submitRemote makes one attempt, then re-initializes the client and retries once.
func (s *Submitter) submitRemote(ctx context.Context, record model.FeedbackRecord) (string, error) {
	in := tracing.FeedbackInput{
		RunID:   record.TraceID,
		Key:     record.Key,
		Score:   NormalizedScore(record.Rating),
		Value:   record.Rating,
		Comment: record.Comment,
		Metadata: map[string]any{
			"raw_rating": record.Rating,
			"comment":    record.Comment,
			"thread_id":  record.ThreadID,
			"source":     "cli",
		},
	}

	client, err := s.getClient(false)
	if err == nil {
		var id string
		if id, err = client.CreateFeedback(ctx, in); err == nil {
			return id, nil
		}
	}
	logx.Debug().Err(err).Msg("feedback attempt failed; re-initializing client")

	client, err = s.getClient(true)
	if err != nil {
		return "", err
	}
	return client.CreateFeedback(ctx, in)
}

func (s *Submitter) getClient(reset bool) (Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reset {
		s.client = nil
	}
	if s.client != nil {
		return s.client, nil
	}
	c, err := s.factory()
	if err != nil {
		return nil, err
	}
	s.client = c
	return c, nil
}

// ResolveTraceID picks the trace to attach feedback to: explicit id, then the
// active trace in ctx, then a thread id that is itself a UUID, then a new UUID.
func ResolveTraceID(ctx context.Context, explicit, threadID string) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	if id, ok := tracing.TraceIDFromContext(ctx); ok {
		return id
	}
	if id, err := uuid.Parse(strings.TrimSpace(threadID)); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

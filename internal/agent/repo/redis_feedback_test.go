package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/chatcli/internal/core/error"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements the list commands the feedback store uses; anything
// else panics through the nil embedded Cmdable.
type fakeRedis struct {
	redis.Cmdable
	lists   map[string][]string
	ttl     map[string]time.Duration
	pushErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{lists: map[string][]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) RPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.pushErr != nil {
		return redis.NewIntResult(0, f.pushErr)
	}
	for _, v := range values {
		switch v := v.(type) {
		case []byte:
			f.lists[key] = append(f.lists[key], string(v))
		case string:
			f.lists[key] = append(f.lists[key], v)
		default:
			f.lists[key] = append(f.lists[key], fmt.Sprint(v))
		}
	}
	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeRedis) Expire(_ context.Context, key string, d time.Duration) *redis.BoolCmd {
	if _, ok := f.lists[key]; !ok {
		return redis.NewBoolResult(false, nil)
	}
	f.ttl[key] = d
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) LRange(_ context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	rows, ok := f.lists[key]
	if !ok {
		return redis.NewStringSliceResult(nil, redis.Nil)
	}
	if start != 0 || stop != -1 {
		panic("fakeRedis only supports full ranges")
	}
	return redis.NewStringSliceResult(append([]string(nil), rows...), nil)
}

func feedbackRecord(id string, rating int) model.FeedbackRecord {
	return model.FeedbackRecord{
		ID:        id,
		Rating:    rating,
		Key:       model.DefaultFeedbackKey,
		TraceID:   "trace-" + id,
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRedisFeedbackRepository_ListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	store := NewRedisFeedbackRepository(rdb, 0)

	require.NoError(t, store.Add(ctx, feedbackRecord("f1", 5)))
	require.NoError(t, store.Add(ctx, feedbackRecord("f2", 2)))
	require.NoError(t, store.Add(ctx, feedbackRecord("f3", 4)))

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "f1", records[0].ID)
	assert.Equal(t, "f2", records[1].ID)
	assert.Equal(t, "f3", records[2].ID)
	assert.Equal(t, 2, records[1].Rating)
	assert.Equal(t, "trace-f3", records[2].TraceID)
	assert.Empty(t, rdb.ttl, "no ttl configured")
}

func TestRedisFeedbackRepository_AddSetsTTL(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	store := NewRedisFeedbackRepository(rdb, 48*time.Hour)

	require.NoError(t, store.Add(ctx, feedbackRecord("f1", 3)))
	assert.Equal(t, 48*time.Hour, rdb.ttl[pendingFeedbackKey])
}

func TestRedisFeedbackRepository_EmptyKeyIsEmptyList(t *testing.T) {
	store := NewRedisFeedbackRepository(newFakeRedis(), time.Hour)

	records, err := store.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestRedisFeedbackRepository_SkipsMalformedRows(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	store := NewRedisFeedbackRepository(rdb, 0)

	require.NoError(t, store.Add(ctx, feedbackRecord("f1", 5)))
	rdb.lists[pendingFeedbackKey] = append(rdb.lists[pendingFeedbackKey], "{not json")
	require.NoError(t, store.Add(ctx, feedbackRecord("f2", 1)))

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "f1", records[0].ID)
	assert.Equal(t, "f2", records[1].ID)
}

func TestRedisFeedbackRepository_PushFailureIsWrapped(t *testing.T) {
	rdb := newFakeRedis()
	rdb.pushErr = errors.New("connection refused")
	store := NewRedisFeedbackRepository(rdb, 0)

	err := store.Add(context.Background(), feedbackRecord("f1", 5))
	require.Error(t, err)
	var appErr *errx.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 502, appErr.Status)
}

package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/chatcli/internal/core/error"
	logx "github.com/Chative-core-poc-v1/chatcli/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const pendingFeedbackKey = "feedback:pending"

// RedisFeedbackRepository keeps feedback that could not reach the trace store.
type RedisFeedbackRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisFeedbackRepository(rdb redis.Cmdable, ttl time.Duration) *RedisFeedbackRepository {
	return &RedisFeedbackRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisFeedbackRepository) Add(ctx context.Context, record model.FeedbackRecord) error {
	b, err := json.Marshal(record)
	if err != nil {
		logx.Error().Err(err).Str("feedbackID", record.ID).Msg("failed to marshal feedback")
		return fmt.Errorf("marshal feedback: %w", err)
	}

	if err := r.rdb.RPush(ctx, pendingFeedbackKey, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", pendingFeedbackKey).Msg("failed to push feedback to redis")
		return errx.WrapRedis(err)
	}
	// extend TTL on touch
	if r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, pendingFeedbackKey, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", pendingFeedbackKey).Msg("failed to set expire")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", pendingFeedbackKey).Dur("ttl", r.ttl).Msg("failed to set TTL on pending feedback key")
		}
	}
	return nil
}

func (r *RedisFeedbackRepository) List(ctx context.Context) ([]model.FeedbackRecord, error) {
	rows, err := r.rdb.LRange(ctx, pendingFeedbackKey, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []model.FeedbackRecord{}, nil
		}
		logx.Error().Err(err).Str("key", pendingFeedbackKey).Msg("failed to load pending feedback from redis")
		return nil, errx.WrapRedis(err)
	}

	records := make([]model.FeedbackRecord, 0, len(rows))
	for i, s := range rows {
		var rec model.FeedbackRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			// one bad row should not hide the rest
			logx.Warn().Err(err).Int("index", i).Msg("skipping malformed pending feedback")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

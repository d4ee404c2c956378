package guard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore はRedisのソート済みセットを使用したAttemptStore実装。
// 複数プロセスで試行履歴を共有できる。剪定と追記が別コマンドになるため
// 同時リクエストが重なった瞬間には上限を数件超過しうる（許容誤差）。
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisStore はRedisStoreを生成する。接続確認としてPINGを送る。
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{rdb: rdb, now: time.Now}, nil
}

// Close はRedis接続を閉じる。
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Allow はAttemptStoreを実装する。スコアをUnixナノ秒とした
// ソート済みセットでウィンドウ内の試行数を数える。
func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	now := s.now()
	cutoff := now.Add(-window).UnixNano()
	redisKey := "guard:contact:" + key

	if err := s.rdb.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return false, 0, fmt.Errorf("failed to prune attempts: %w", err)
	}

	count, err := s.rdb.ZCard(ctx, redisKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	if count >= int64(limit) {
		retryAfter := window
		oldest, err := s.rdb.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			expiry := time.Unix(0, int64(oldest[0].Score)).Add(window)
			retryAfter = expiry.Sub(now)
			if retryAfter < 0 {
				retryAfter = 0
			}
		}
		return false, retryAfter, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	if err := s.rdb.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: member,
	}).Err(); err != nil {
		return false, 0, fmt.Errorf("failed to record attempt: %w", err)
	}

	// キーのTTLはウィンドウ長と同じ。放置されたキーはRedis側で消える。
	if err := s.rdb.Expire(ctx, redisKey, window).Err(); err != nil {
		return false, 0, fmt.Errorf("failed to set attempt ttl: %w", err)
	}

	return true, 0, nil
}

// compile-time interface check
var _ AttemptStore = (*RedisStore)(nil)

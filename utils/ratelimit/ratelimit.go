package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/prime-labs/express-bot/middleware/log"
)

const keyPrefix = "ratelimit:"

// WindowLimiter counts requests per key in fixed time windows stored in Redis.
// Counters are shared by every bot instance using the same Redis.
type WindowLimiter struct {
	redisClient *redis.Client
	logger      *logger.Logger
	failOpen    bool // allow requests when Redis is unavailable
	now         func() time.Time
}

// NewWindowLimiter creates a fixed window rate limiter.
//
// Parameters:
//   - redisClient: Redis client for storing counters
//   - log: Logger for recording limiter failures and rejections
//   - failOpen: If true, allows requests when Redis fails
//
// Returns:
//   - *WindowLimiter: The initialized rate limiter
func NewWindowLimiter(redisClient *redis.Client, log *logger.Logger, failOpen bool) *WindowLimiter {
	if log == nil {
		log = logger.NewNop()
	}
	return &WindowLimiter{
		redisClient: redisClient,
		logger:      log,
		failOpen:    failOpen,
		now:         time.Now,
	}
}

// Allow records one request for key and reports whether it fits in limit.
func (l *WindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return l.AllowN(ctx, key, 1, limit, window)
}

// AllowN records n requests for key in the current window.
//
// Parameters:
//   - ctx: Context for the operation
//   - key: Unique identifier for the counter, e.g. "submission:123"
//   - n: Number of requests to record
//   - limit: Maximum number of requests allowed in the window
//   - window: Length of a window
//
// Returns:
//   - bool: true if the requests are allowed, false if the limit is exceeded
//   - error: Any Redis error when the limiter fails closed
func (l *WindowLimiter) AllowN(ctx context.Context, key string, n, limit int, window time.Duration) (bool, error) {
	bucketKey, err := l.bucketKey(key, window)
	if err != nil {
		return false, err
	}

	pipe := l.redisClient.TxPipeline()
	incr := pipe.IncrBy(ctx, bucketKey, int64(n))
	pipe.Expire(ctx, bucketKey, window+time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		if l.failOpen {
			l.logger.WarnContext(ctx, "rate limit check failed, allowing request",
				zap.String("key", key),
				zap.Error(err),
			)
			return true, nil
		}
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	count := incr.Val()
	allowed := count <= int64(limit)
	if !allowed {
		l.logger.InfoContext(ctx, "rate limit exceeded",
			zap.String("key", key),
			zap.Int64("count", count),
			zap.Int("limit", limit),
			zap.Duration("window", window),
		)
	}
	return allowed, nil
}

// Remaining returns how many requests key may still make in the current window.
func (l *WindowLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	bucketKey, err := l.bucketKey(key, window)
	if err != nil {
		return 0, err
	}

	count, err := l.redisClient.Get(ctx, bucketKey).Int64()
	if errors.Is(err, redis.Nil) {
		return limit, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read rate limit counter: %w", err)
	}
	return max(limit-int(count), 0), nil
}

// Reset clears the counter of key for the current window.
func (l *WindowLimiter) Reset(ctx context.Context, key string, window time.Duration) error {
	bucketKey, err := l.bucketKey(key, window)
	if err != nil {
		return err
	}
	if err := l.redisClient.Del(ctx, bucketKey).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit for key %s: %w", key, err)
	}
	return nil
}

func (l *WindowLimiter) bucketKey(key string, window time.Duration) (string, error) {
	if window < time.Millisecond {
		return "", fmt.Errorf("rate limit window %s is too short", window)
	}
	bucket := l.now().UnixMilli() / window.Milliseconds()
	return fmt.Sprintf("%s%s:%d", keyPrefix, key, bucket), nil
}

// SubmissionLimiter bounds email submissions per Discord user.
type SubmissionLimiter struct {
	limiter *WindowLimiter
	limit   int
	window  time.Duration
}

func NewSubmissionLimiter(limiter *WindowLimiter, limit int, window time.Duration) *SubmissionLimiter {
	return &SubmissionLimiter{limiter: limiter, limit: limit, window: window}
}

// Allow records a submission by discordUserID.
func (s *SubmissionLimiter) Allow(ctx context.Context, discordUserID string) (bool, error) {
	return s.limiter.Allow(ctx, "submission:"+discordUserID, s.limit, s.window)
}

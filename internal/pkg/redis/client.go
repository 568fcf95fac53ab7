package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/prime-labs/express-bot/config"
)

const (
	ticketNumberSeqKey   = "ticket:number:seq"
	ticketCacheKeyPrefix = "ticket:user:"
)

// Client wraps go-redis with the ticket sequence and cache operations the bot needs.
type Client struct {
	client   *redis.Client
	cacheTTL time.Duration
}

// NewClient connects to Redis and verifies the connection with a PING.
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewFromClient(rdb, cfg.CacheTTL), nil
}

// NewFromClient wraps an existing go-redis client.
func NewFromClient(rdb *redis.Client, cacheTTL time.Duration) *Client {
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &Client{client: rdb, cacheTTL: cacheTTL}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// GetClient exposes the underlying client for the rate limiter.
func (c *Client) GetClient() *redis.Client {
	return c.client
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// NextTicketNumber returns the next value of the global ticket sequence.
func (c *Client) NextTicketNumber(ctx context.Context) (string, error) {
	n, err := c.client.Incr(ctx, ticketNumberSeqKey).Result()
	if err != nil {
		return "", fmt.Errorf("failed to generate ticket number: %w", err)
	}
	return strconv.FormatInt(n, 10), nil
}

// GetTicket returns the cached ticket payload for a Discord user.
// found is false on a cache miss.
func (c *Client) GetTicket(ctx context.Context, discordUserID string) (data []byte, found bool, err error) {
	data, err = c.client.Get(ctx, ticketCacheKeyPrefix+discordUserID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached ticket for %s: %w", discordUserID, err)
	}
	return data, true, nil
}

func (c *Client) SetTicket(ctx context.Context, discordUserID string, data []byte) error {
	if err := c.client.Set(ctx, ticketCacheKeyPrefix+discordUserID, data, c.cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache ticket for %s: %w", discordUserID, err)
	}
	return nil
}

func (c *Client) DelTicket(ctx context.Context, discordUserID string) error {
	if err := c.client.Del(ctx, ticketCacheKeyPrefix+discordUserID).Err(); err != nil {
		return fmt.Errorf("failed to evict cached ticket for %s: %w", discordUserID, err)
	}
	return nil
}

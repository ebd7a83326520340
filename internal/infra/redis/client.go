package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// PayloadField is the stream entry field holding the JSON document.
const PayloadField = "payload"

// Client wraps Redis stream operations for the scoring queue.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Message is one entry read from a stream.
type Message struct {
	Stream  string
	ID      string
	Payload []byte
	// HasPayload is false when the entry carried no payload field.
	HasPayload bool
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// EnsureGroup creates the consumer group, and the stream if missing. An
// existing group is not an error.
func (c *Client) EnsureGroup(ctx context.Context, stream, group string) error {
	err := c.rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("xgroup create failed: %w", err)
	}
	return nil
}

// ReadGroup reads up to count new entries for consumer, blocking at most
// block. No entries within block yields an empty slice and no error.
func (c *Client) ReadGroup(
	ctx context.Context,
	stream, group, consumer string,
	count int64,
	block time.Duration,
) ([]Message, error) {
	streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup failed: %w", err)
	}

	var out []Message
	for _, s := range streams {
		for _, m := range s.Messages {
			msg := Message{Stream: s.Stream, ID: m.ID}
			if v, ok := m.Values[PayloadField]; ok {
				msg.HasPayload = true
				switch p := v.(type) {
				case string:
					msg.Payload = []byte(p)
				case []byte:
					msg.Payload = p
				default:
					msg.Payload = []byte(fmt.Sprint(p))
				}
			}
			out = append(out, msg)
		}
	}
	return out, nil
}

// Ack acknowledges handled entries.
func (c *Client) Ack(ctx context.Context, stream, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.rdb.XAck(ctx, stream, group, ids...).Err(); err != nil {
		return fmt.Errorf("xack failed: %w", err)
	}
	return nil
}

// Publish appends payload to stream and returns the entry ID.
func (c *Client) Publish(ctx context.Context, stream string, payload []byte) (string, error) {
	id, err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{PayloadField: string(payload)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd failed: %w", err)
	}
	return id, nil
}

// Len returns the number of entries in stream.
func (c *Client) Len(ctx context.Context, stream string) (int64, error) {
	n, err := c.rdb.XLen(ctx, stream).Result()
	if err != nil {
		return 0, fmt.Errorf("xlen failed: %w", err)
	}
	return n, nil
}

// Range returns every entry of stream, oldest first.
func (c *Client) Range(ctx context.Context, stream string) ([]Message, error) {
	entries, err := c.rdb.XRange(ctx, stream, "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("xrange failed: %w", err)
	}
	out := make([]Message, 0, len(entries))
	for _, e := range entries {
		msg := Message{Stream: stream, ID: e.ID}
		if v, ok := e.Values[PayloadField].(string); ok {
			msg.Payload = []byte(v)
			msg.HasPayload = true
		}
		out = append(out, msg)
	}
	return out, nil
}

// Pending returns the number of entries delivered to group but not acked.
func (c *Client) Pending(ctx context.Context, stream, group string) (int64, error) {
	p, err := c.rdb.XPending(ctx, stream, group).Result()
	if err != nil {
		return 0, fmt.Errorf("xpending failed: %w", err)
	}
	return p.Count, nil
}

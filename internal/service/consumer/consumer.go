// Package consumer scores wallets arriving on a Redis stream and publishes
// the results to success and failure streams.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/vietddude/walletscore/internal/core/domain"
	redisclient "github.com/vietddude/walletscore/internal/infra/redis"
	"github.com/vietddude/walletscore/internal/metrics"
	"github.com/vietddude/walletscore/internal/service"
)

const (
	// readErrorDelay is the pause after a failed stream read.
	readErrorDelay = time.Second
	// ackTimeout bounds an acknowledgement sent after shutdown has begun.
	ackTimeout = 5 * time.Second
)

var errNoPayload = errors.New("message has no payload field")

// Stream is the subset of the Redis client the consumer needs.
type Stream interface {
	EnsureGroup(ctx context.Context, stream, group string) error
	ReadGroup(
		ctx context.Context,
		stream, group, consumer string,
		count int64,
		block time.Duration,
	) ([]redisclient.Message, error)
	Ack(ctx context.Context, stream, group string, ids ...string) error
	Publish(ctx context.Context, stream string, payload []byte) (string, error)
}

// Config names the streams and read settings.
type Config struct {
	InputStream   string
	SuccessStream string
	FailureStream string
	Group         string
	Consumer      string
	BlockTimeout  time.Duration
	BatchSize     int64
}

// FailureMessage is published for messages that could not be scored.
// Wallet holds the original payload when it was valid JSON, null otherwise.
type FailureMessage struct {
	Error  string          `json:"error"`
	Wallet json.RawMessage `json:"wallet"`
}

// Consumer reads wallet payloads from the input stream.
type Consumer struct {
	cfg      Config
	stream   Stream
	scorer   service.Scorer
	reporter *service.Reporter
	log      *slog.Logger
	now      func() time.Time
}

// New creates a consumer.
func New(cfg Config, stream Stream, scorer service.Scorer, reporter *service.Reporter) *Consumer {
	return &Consumer{
		cfg:      cfg,
		stream:   stream,
		scorer:   scorer,
		reporter: reporter,
		log:      slog.Default().With("component", "consumer", "stream", cfg.InputStream),
		now:      time.Now,
	}
}

// Run consumes until ctx is done. It only returns an error when the consumer
// group cannot be created.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.stream.EnsureGroup(ctx, c.cfg.InputStream, c.cfg.Group); err != nil {
		return err
	}
	c.log.Info("Queue consumer started", "group", c.cfg.Group, "consumer", c.cfg.Consumer)

	for {
		if ctx.Err() != nil {
			return nil
		}

		msgs, err := c.stream.ReadGroup(ctx, c.cfg.InputStream, c.cfg.Group, c.cfg.Consumer, c.cfg.BatchSize, c.cfg.BlockTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error("Failed to read from stream", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(readErrorDelay):
			}
			continue
		}

		// A read batch is finished even when shutdown starts mid-batch, so
		// every delivered entry is published and acknowledged.
		work := context.WithoutCancel(ctx)
		for _, msg := range msgs {
			c.Handle(work, msg)
		}
	}
}

// Handle scores one message, publishes the outcome and acknowledges it.
// Engine failures are results like any other and go to the success stream;
// only undecodable messages go to the failure stream.
func (c *Consumer) Handle(ctx context.Context, msg redisclient.Message) {
	defer func() {
		ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ackTimeout)
		defer cancel()
		if err := c.stream.Ack(ackCtx, c.cfg.InputStream, c.cfg.Group, msg.ID); err != nil {
			c.log.Error("Failed to ack message", "id", msg.ID, "error", err)
		}
	}()

	if !msg.HasPayload {
		c.fail(ctx, msg, errNoPayload)
		return
	}

	in, err := domain.ParseWalletInput(msg.Payload)
	if err != nil {
		c.fail(ctx, msg, err)
		return
	}
	c.log.Debug("Consumed message", "id", msg.ID, "wallet", in.WalletAddress)

	start := c.now()
	result := c.scorer.Process(in)
	end := c.now()
	result.Timestamp = end.Unix()

	data, err := json.Marshal(result)
	if err != nil {
		c.fail(ctx, msg, err)
		return
	}
	c.publish(ctx, c.cfg.SuccessStream, data)

	metrics.QueueMessagesTotal.WithLabelValues("success").Inc()
	c.reporter.Report(ctx, domain.TransportQueue, result, end.Sub(start))
}

func (c *Consumer) fail(ctx context.Context, msg redisclient.Message, cause error) {
	metrics.QueueMessagesTotal.WithLabelValues("failure").Inc()
	c.log.Error("Failed processing queue message", "id", msg.ID, "error", cause)

	wallet := json.RawMessage("null")
	if msg.HasPayload && json.Valid(msg.Payload) {
		wallet = json.RawMessage(msg.Payload)
	}

	data, err := json.Marshal(FailureMessage{Error: cause.Error(), Wallet: wallet})
	if err != nil {
		c.log.Error("Failed to encode failure message", "error", err)
		return
	}
	c.publish(ctx, c.cfg.FailureStream, data)
}

// publish logs and counts errors; a lost result never stops the consumer.
func (c *Consumer) publish(ctx context.Context, stream string, data []byte) {
	if _, err := c.stream.Publish(ctx, stream, data); err != nil {
		metrics.QueuePublishErrors.WithLabelValues(stream).Inc()
		c.log.Error("Failed to publish message", "target", stream, "error", err)
	}
}

// Package kafka consumes entity change events and applies them through ingestion.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
	"github.com/kailas-cloud/talentmatch/internal/logger"
	"github.com/kailas-cloud/talentmatch/internal/metrics"
	ingestuc "github.com/kailas-cloud/talentmatch/internal/usecase/ingest"
)

// Reader is the subset of *kafkago.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Ingestor applies entity writes.
type Ingestor interface {
	Upsert(ctx context.Context, in ingestuc.Input) (entity.Entity, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Config configures a consumer group reader.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewReader creates a consumer group reader with explicit commits.
func NewReader(cfg Config) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
		StartOffset: kafkago.FirstOffset,
	})
}

const (
	resultApplied  = "applied"
	resultPoison   = "poison"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

// Consumer applies events one at a time, so per-partition order is preserved.
type Consumer struct {
	reader   Reader
	ingest   Ingestor
	logger   *zap.Logger
	attempts int
	backoff  time.Duration
}

// NewConsumer creates a Consumer.
func NewConsumer(r Reader, ing Ingestor, l *zap.Logger) *Consumer {
	if l == nil {
		l = zap.NewNop()
	}
	return &Consumer{reader: r, ingest: ing, logger: l, attempts: 3, backoff: 500 * time.Millisecond}
}

// WithRetry sets how many times a transient failure is retried before the event is skipped.
func (c *Consumer) WithRetry(attempts int, backoff time.Duration) *Consumer {
	if attempts > 0 {
		c.attempts = attempts
	}
	c.backoff = backoff
	return c
}

// Run consumes until ctx is cancelled. Every handled message is committed,
// including ones that can never be applied.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := c.handle(ctx, msg); err != nil {
			// only cancellation leaves a message uncommitted
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("close reader: %w", err)
	}
	return nil
}

// handle returns an error only when ctx was cancelled mid-event.
func (c *Consumer) handle(ctx context.Context, msg kafkago.Message) error {
	log := c.logger.With(
		zap.String("topic", msg.Topic),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	ev, err := decodeEvent(msg.Value)
	if err != nil {
		log.Warn("poison message skipped", zap.Error(err))
		metrics.KafkaMessagesTotal.WithLabelValues(resultPoison).Inc()
		return nil
	}

	ctx = logger.ContextWithLogger(ingestuc.WithSource(ctx, ingestuc.SourceKafka), log.With(zap.String("event_id", ev.EventID)))
	ctx = logger.WithEntity(ctx, ev.Entity.ID)
	log = logger.FromContext(ctx)

	for attempt := 1; ; attempt++ {
		err = c.apply(ctx, &ev)
		if err == nil {
			metrics.KafkaMessagesTotal.WithLabelValues(resultApplied).Inc()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err() //nolint:wrapcheck // signal only
		}
		if !transient(err) {
			log.Warn("event rejected", zap.String("event_type", ev.EventType), zap.Error(err))
			metrics.KafkaMessagesTotal.WithLabelValues(resultRejected).Inc()
			return nil
		}
		if attempt >= c.attempts {
			log.Error("event dropped after retries", zap.Int("attempts", attempt), zap.Error(err))
			metrics.KafkaMessagesTotal.WithLabelValues(resultFailed).Inc()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err() //nolint:wrapcheck // signal only
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}
}

func (c *Consumer) apply(ctx context.Context, ev *Event) error {
	if ev.EventType == EventEntityDeleted {
		_, err := c.ingest.Delete(ctx, ev.Entity.ID)
		return err //nolint:wrapcheck // classified by caller
	}
	p := &ev.Entity
	_, err := c.ingest.Upsert(ctx, ingestuc.Input{
		ID:         p.ID,
		Kind:       entity.Kind(p.Kind),
		Vector:     p.Vector,
		Text:       p.Text,
		Attributes: p.Attributes,
		Weights:    p.Weights,
		MinScore:   p.MinScore,
	})
	return err //nolint:wrapcheck // classified by caller
}

// transient reports whether retrying the same event may succeed.
func transient(err error) bool {
	return errors.Is(err, domain.ErrEmbeddingProviderError)
}

// internal/common/feed/consumer.go
package feed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	stderrors "mealbell/internal/common/errors"
	"mealbell/internal/common/logger"
	"mealbell/internal/common/observability"
)

const (
	fieldCollection = "collection"
	fieldKey        = "key"
	fieldRecord     = "record"
)

// Consumer reads change-feed entries from one Redis Stream via a consumer
// group and dispatches them to the handler registered for the entry's
// collection. Entries are acknowledged once handled; retryable handler
// failures leave the entry pending so a later claim pass redelivers it.
type Consumer struct {
	client    *redis.Client
	stream    string
	group     string
	name      string
	batchSize int64
	block     time.Duration
	claimIdle time.Duration

	handlers map[string]RecordHandler
	errs     *stderrors.Handler
	obs      *observability.Observability
	logger   logger.Logger
}

type ConsumerOptions struct {
	Stream    string
	Group     string
	Consumer  string
	BatchSize int
	Block     time.Duration
	ClaimIdle time.Duration
}

func NewConsumer(client *redis.Client, opts ConsumerOptions, errHandler *stderrors.Handler, obs *observability.Observability, log logger.Logger) *Consumer {
	return &Consumer{
		client:    client,
		stream:    opts.Stream,
		group:     opts.Group,
		name:      opts.Consumer,
		batchSize: int64(opts.BatchSize),
		block:     opts.Block,
		claimIdle: opts.ClaimIdle,
		handlers:  make(map[string]RecordHandler),
		errs:      errHandler,
		obs:       obs,
		logger: log.WithFields(map[string]interface{}{
			"stream": opts.Stream,
			"group":  opts.Group,
		}),
	}
}

// Register adds a handler for its collection. Later registrations for the
// same collection replace earlier ones.
func (c *Consumer) Register(h RecordHandler) {
	c.handlers[h.Collection()] = h
}

// Run consumes the stream until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	c.logger.Info("feed consumer started", map[string]interface{}{
		"consumer": c.name,
	})

	for {
		if ctx.Err() != nil {
			return nil
		}

		c.claimStalled(ctx)

		msgs, err := c.readBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("feed read failed", map[string]interface{}{"error": err.Error()})
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return err
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func (c *Consumer) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.name,
		Streams:  []string{c.stream, ">"},
		Count:    c.batchSize,
		Block:    c.block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var msgs []redis.XMessage
	for _, s := range streams {
		msgs = append(msgs, s.Messages...)
	}
	return msgs, nil
}

// claimStalled takes over pending entries whose consumer stopped making
// progress and processes them again.
func (c *Consumer) claimStalled(ctx context.Context) {
	msgs, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: c.name,
		MinIdle:  c.claimIdle,
		Start:    "0-0",
		Count:    c.batchSize,
	}).Result()
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, redis.Nil) {
			c.logger.Warn("pending-entry claim failed", map[string]interface{}{"error": err.Error()})
		}
		return
	}
	for _, msg := range msgs {
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	collection := stringField(msg, fieldCollection)
	key := stringField(msg, fieldKey)
	data := stringField(msg, fieldRecord)

	// An event without a record is "nothing to do", not an error.
	if data == "" {
		c.logger.Info("no data associated with the event", map[string]interface{}{
			"entryId":    msg.ID,
			"collection": collection,
		})
		c.ack(ctx, msg.ID)
		c.obs.RecordProcessed(ctx, "empty")
		return
	}

	handler, ok := c.handlers[collection]
	if !ok {
		c.logger.Warn("no handler registered for collection", map[string]interface{}{
			"entryId":    msg.ID,
			"collection": collection,
		})
		c.ack(ctx, msg.ID)
		c.obs.RecordProcessed(ctx, "unhandled")
		return
	}

	tracer := observability.Tracer("feed")
	spanCtx, span := tracer.Start(ctx, "feed.handle_record")
	span.SetAttributes(
		attribute.String("feed.collection", collection),
		attribute.String("feed.key", key),
	)
	err := handler.HandleRecord(spanCtx, &Record{
		Collection: collection,
		Key:        key,
		Data:       []byte(data),
	})
	span.End()

	if err != nil {
		if c.errs.HandleRecordError(ctx, collection, key, err) {
			c.ack(ctx, msg.ID)
		}
		c.obs.RecordProcessed(ctx, "failed")
		return
	}

	c.ack(ctx, msg.ID)
	c.obs.RecordProcessed(ctx, "ok")
}

func (c *Consumer) ack(ctx context.Context, entryID string) {
	if err := c.client.XAck(ctx, c.stream, c.group, entryID).Err(); err != nil && ctx.Err() == nil {
		c.logger.Error("feed ack failed", map[string]interface{}{
			"entryId": entryID,
			"error":   err.Error(),
		})
	}
}

func stringField(msg redis.XMessage, field string) string {
	if v, ok := msg.Values[field]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

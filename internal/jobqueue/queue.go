// Package jobqueue is the ambient collaborator boundary through which an
// external scheduler hands this worker a project to index: a Valkey stream,
// adapted from the teacher ingestion queue's stream/consumer-group idiom.
package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/valkey-io/valkey-go"
)

const (
	StreamName = "codegraph:index"
	GroupName  = "codegraph-workers"
	MaxRetries = 3
)

// IndexMessage names the project a worker should run the pipeline against.
type IndexMessage struct {
	ProjectID int64  `json:"project_id"`
	Trigger   string `json:"trigger"` // "manual", "schedule"
}

// Producer enqueues indexing jobs.
type Producer struct {
	client valkey.Client
}

func NewProducer(client valkey.Client) *Producer {
	return &Producer{client: client}
}

func (p *Producer) Enqueue(ctx context.Context, msg IndexMessage) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}

	resp := p.client.Do(ctx, p.client.B().Xadd().
		Key(StreamName).Id("*").
		FieldValue().FieldValue("data", string(data)).
		Build())
	if err := resp.Error(); err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	id, err := resp.ToString()
	if err != nil {
		return "", fmt.Errorf("parse xadd response: %w", err)
	}
	return id, nil
}

// Consumer reads indexing jobs from the stream via a consumer group, so
// multiple worker processes can share the queue without double-processing
// a project.
type Consumer struct {
	client     valkey.Client
	consumerID string
	logger     *slog.Logger
}

func NewConsumer(client valkey.Client, consumerID string, logger *slog.Logger) *Consumer {
	return &Consumer{client: client, consumerID: consumerID, logger: logger}
}

// EnsureGroup creates the consumer group if it doesn't already exist.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	resp := c.client.Do(ctx, c.client.B().XgroupCreate().
		Key(StreamName).Group(GroupName).Id("0").Mkstream().Build())
	if err := resp.Error(); err != nil && !errors.Is(err, valkey.Nil) {
		if err.Error() != "BUSYGROUP Consumer Group name already exists" {
			return fmt.Errorf("xgroup create: %w", err)
		}
	}
	return nil
}

// Consume blocks, handing each message in turn to handle and acking on
// success. A handler error is logged and the message is left unacked in the
// group's pending list. Consume reads only never-delivered messages (">"),
// so it does not redeliver or claim pending messages itself, and MaxRetries
// is not enforced here.
func (c *Consumer) Consume(ctx context.Context, handle func(context.Context, IndexMessage) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		resp := c.client.Do(ctx, c.client.B().Xreadgroup().
			Group(GroupName, c.consumerID).Count(1).Block(5000).
			Streams().Key(StreamName).Id(">").Build())
		if err := resp.Error(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue // BLOCK timeout, normal
		}

		entries, err := resp.AsXRead()
		if err != nil {
			continue
		}

		for _, msgs := range entries {
			for _, m := range msgs {
				data, ok := m.FieldValues["data"]
				if !ok {
					continue
				}
				var msg IndexMessage
				if err := json.Unmarshal([]byte(data), &msg); err != nil {
					c.logger.Error("malformed message, acking to drop", slog.String("id", m.ID), slog.Any("error", err))
					c.ack(ctx, m.ID)
					continue
				}

				if err := handle(ctx, msg); err != nil {
					c.logger.Error("handler failed, leaving unacked for retry",
						slog.String("id", m.ID), slog.Int64("project_id", msg.ProjectID), slog.Any("error", err))
					continue
				}
				c.ack(ctx, m.ID)
			}
		}
	}
}

func (c *Consumer) ack(ctx context.Context, id string) {
	resp := c.client.Do(ctx, c.client.B().Xack().Key(StreamName).Group(GroupName).Id(id).Build())
	if err := resp.Error(); err != nil {
		c.logger.Error("xack failed", slog.String("id", id), slog.Any("error", err))
	}
}

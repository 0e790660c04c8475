// Package consumer keeps a serving process in step with index builds done
// elsewhere: it reads index-complete events from Kafka and reloads the
// named artifact from the shared data directory.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/resilience"
)

// Reloader is the part of the engine the consumer drives.
type Reloader interface {
	Reload(event indexer.IndexCompleteEvent) error
}

// ReloadConsumer wraps a Kafka consumer subscribed to index-complete events.
type ReloadConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *ReloadConsumer {
	return &ReloadConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "reload-consumer"),
	}
}

// Start consumes until ctx is cancelled.
func (rc *ReloadConsumer) Start(ctx context.Context) error {
	rc.logger.Info("reload consumer starting")
	return rc.consumer.Start(ctx)
}

// AfterReload is called after every successful reload, for example to
// invalidate cached search results.
type AfterReload func(ctx context.Context, event indexer.IndexCompleteEvent)

// HandleMessage returns a MessageHandler that reloads the artifact named in
// each event. Undecodable messages are logged and acknowledged. A failed
// reload is returned for retry unless the event names an unknown artifact.
func HandleMessage(r Reloader, after AfterReload) kafka.MessageHandler {
	logger := slog.Default().With("component", "reload-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[indexer.IndexCompleteEvent](value)
		if err != nil {
			logger.Error("failed to decode index-complete event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if err := r.Reload(event); err != nil {
			err = fmt.Errorf("reloading %s index: %w", event.Artifact, err)
			if errors.Is(err, apperrors.ErrInvalidParameter) {
				return resilience.Permanent(err)
			}
			return err
		}
		logger.Info("index reloaded",
			"artifact", event.Artifact,
			"documents", event.Documents,
			"trace_id", event.TraceID,
		)
		if after != nil {
			after(ctx, event)
		}
		return nil
	}
}

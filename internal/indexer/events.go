package indexer

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/kafka"
)

// IndexCompleteEvent announces that an artifact was rebuilt and persisted.
type IndexCompleteEvent struct {
	Artifact  string    `json:"artifact"`
	Path      string    `json:"path"`
	Documents int       `json:"documents"`
	Terms     int       `json:"terms,omitempty"`
	Chunks    int       `json:"chunks,omitempty"`
	TraceID   string    `json:"trace_id"`
	BuiltAt   time.Time `json:"built_at"`
}

// KafkaNotifier publishes completion events keyed by artifact, so events
// for one artifact stay ordered within a partition.
type KafkaNotifier struct {
	producer *kafka.Producer
}

func NewKafkaNotifier(p *kafka.Producer) *KafkaNotifier {
	return &KafkaNotifier{producer: p}
}

func (n *KafkaNotifier) NotifyIndexComplete(ctx context.Context, event IndexCompleteEvent) error {
	return n.producer.Publish(ctx, kafka.Event{Key: event.Artifact, Value: event})
}

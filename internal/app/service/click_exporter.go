package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/thorvik/keyward/internal/app/model"
	"go.uber.org/zap"
)

// Exporter fans persisted click events out to external consumers.
// Implementations are best-effort; export failures never affect delivery to
// the store.
type Exporter interface {
	Export(ctx context.Context, events []*model.ClickEvent)
}

// ClickExporter publishes click events to NATS JetStream for dashboards and
// downstream aggregation jobs.
type ClickExporter struct {
	js     nats.JetStreamContext
	logger *zap.Logger
}

// NewClickExporter creates an exporter bound to the given JetStream context.
func NewClickExporter(js nats.JetStreamContext, logger *zap.Logger) *ClickExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClickExporter{js: js, logger: logger}
}

// EnsureStream creates the click stream if it does not exist yet.
func (e *ClickExporter) EnsureStream() error {
	if _, err := e.js.StreamInfo(model.ClickStreamName); err == nil {
		return nil
	}
	_, err := e.js.AddStream(&nats.StreamConfig{
		Name:     model.ClickStreamName,
		Subjects: []string{model.ClickStreamSubject},
		MaxBytes: model.ClickStreamMaxBytes,
	})
	if err != nil {
		return fmt.Errorf("create click stream: %w", err)
	}
	return nil
}

// Export publishes each event to the click subject. Failures are logged and
// swallowed.
func (e *ClickExporter) Export(_ context.Context, events []*model.ClickEvent) {
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			e.logger.Error("failed to marshal click event", zap.String("id", event.ID), zap.Error(err))
			continue
		}
		if _, err := e.js.Publish(model.ClickStreamSubject, data); err != nil {
			e.logger.Warn("failed to publish click event",
				zap.String("id", event.ID),
				zap.String("link_id", event.LinkID),
				zap.Error(err))
		}
	}
}

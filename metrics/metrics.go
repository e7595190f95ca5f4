// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package metrics

import (
	"context"

	api "go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Fintechain/gfs-core/events"
)

type EngineMetrics struct {
	meter metric.Meter
	opts  metric.MeasurementOption

	MessagesSubmitted    metric.Int64Counter
	MessagesFailed       metric.Int64Counter
	MessagesSettled      metric.Int64Counter
	DeliveriesCompleted  metric.Int64Counter
	SettlementsCompleted metric.Int64Counter
	SettlementsFailed    metric.Int64Counter
}

// NewEngineMetrics creates an instance of engine metrics
func NewEngineMetrics(meter metric.Meter, env, instanceID string) (*EngineMetrics, error) {
	opts := metric.WithAttributes(
		api.String("env", env),
		api.String("instance", instanceID),
	)

	messagesSubmitted, err := meter.Int64Counter(
		"engine.MessagesSubmitted",
		metric.WithDescription("Total number of messages submitted"),
	)
	if err != nil {
		return nil, err
	}
	messagesFailed, err := meter.Int64Counter(
		"engine.MessagesFailed",
		metric.WithDescription("Total number of messages that entered failed status"),
	)
	if err != nil {
		return nil, err
	}
	messagesSettled, err := meter.Int64Counter(
		"engine.MessagesSettled",
		metric.WithDescription("Total number of messages settled"),
	)
	if err != nil {
		return nil, err
	}
	deliveriesCompleted, err := meter.Int64Counter(
		"engine.DeliveriesCompleted",
		metric.WithDescription("Total number of cross-chain deliveries confirmed"),
	)
	if err != nil {
		return nil, err
	}
	settlementsCompleted, err := meter.Int64Counter(
		"engine.SettlementsCompleted",
		metric.WithDescription("Total number of settlements completed"),
	)
	if err != nil {
		return nil, err
	}
	settlementsFailed, err := meter.Int64Counter(
		"engine.SettlementsFailed",
		metric.WithDescription("Total number of settlements failed"),
	)
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		meter:                meter,
		opts:                 opts,
		MessagesSubmitted:    messagesSubmitted,
		MessagesFailed:       messagesFailed,
		MessagesSettled:      messagesSettled,
		DeliveriesCompleted:  deliveriesCompleted,
		SettlementsCompleted: settlementsCompleted,
		SettlementsFailed:    settlementsFailed,
	}, nil
}

// ObserveEvents consumes engine events and tracks them until ctx is done.
func (m *EngineMetrics) ObserveEvents(ctx context.Context, sub <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-sub:
			m.track(ctx, event)
		}
	}
}

func (m *EngineMetrics) track(ctx context.Context, event events.Event) {
	switch event.Type {
	case events.MessageSubmitted:
		m.MessagesSubmitted.Add(ctx, 1, m.opts)
	case events.MessageStatusChanged:
		switch event.Attributes["status"] {
		case "failed":
			m.MessagesFailed.Add(ctx, 1, m.opts)
		case "settled":
			m.MessagesSettled.Add(ctx, 1, m.opts)
		}
	case events.DeliveryCompleted:
		m.DeliveriesCompleted.Add(ctx, 1, m.opts)
	case events.SettlementStatusChanged:
		switch event.Attributes["status"] {
		case "completed":
			m.SettlementsCompleted.Add(ctx, 1, m.opts)
		case "failed":
			m.SettlementsFailed.Add(ctx, 1, m.opts)
		}
	}
}

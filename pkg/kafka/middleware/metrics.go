package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"repairdesk/pkg/kafka"
)

// Metrics counts publish outcomes. Safe for concurrent use.
type Metrics struct {
	published     atomic.Int64
	failed        atomic.Int64
	durationTotal atomic.Int64 // nanoseconds, successful publishes only
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Published() int64 {
	return m.published.Load()
}

func (m *Metrics) Failed() int64 {
	return m.failed.Load()
}

func (m *Metrics) AvgPublishDuration() time.Duration {
	published := m.published.Load()
	if published == 0 {
		return 0
	}
	return time.Duration(m.durationTotal.Load() / published)
}

func MetricsProducerMiddleware(m *Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		err := next(ctx, msg)

		if err != nil {
			m.failed.Add(1)
		} else {
			m.published.Add(1)
			m.durationTotal.Add(int64(time.Since(start)))
		}

		return err
	}
}

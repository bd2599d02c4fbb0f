package kafka_middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"repairdesk/pkg/kafka"
	"repairdesk/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestMetricsProducerMiddleware(t *testing.T) {
	m := NewMetrics()
	mw := MetricsProducerMiddleware(m)
	msg := kafka.Message{Topic: "t", Key: "k", Value: []byte("{}")}

	ok := func(ctx context.Context, msg kafka.Message) error { return nil }
	fail := func(ctx context.Context, msg kafka.Message) error { return errors.New("broker down") }

	assert.NoError(t, mw(context.Background(), msg, ok))
	assert.NoError(t, mw(context.Background(), msg, ok))
	assert.Error(t, mw(context.Background(), msg, fail))

	assert.Equal(t, int64(2), m.Published())
	assert.Equal(t, int64(1), m.Failed())
	assert.GreaterOrEqual(t, m.AvgPublishDuration(), time.Duration(0))
}

func TestLoggingProducerMiddleware_PassesErrorThrough(t *testing.T) {
	mw := LoggingProducerMiddleware(logger.Discard())
	want := errors.New("broker down")

	err := mw(context.Background(), kafka.Message{Topic: "t"}, func(ctx context.Context, msg kafka.Message) error {
		return want
	})

	assert.ErrorIs(t, err, want)
}

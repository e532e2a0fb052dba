package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"ms-boxoffice/internal/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishEncodesJSON(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{Writer: w, Log: logger.Discard()}

	err := p.Publish(context.Background(), "order-events", "ord-1", map[string]string{"type": "order.created"})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "order-events", w.msgs[0].Topic)
	assert.Equal(t, "ord-1", string(w.msgs[0].Key))
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &body))
	assert.Equal(t, "order.created", body["type"])
}

func TestPublishWrapsWriterError(t *testing.T) {
	p := &Producer{Writer: &recordingWriter{err: errors.New("broker down")}, Log: logger.Discard()}

	err := p.Publish(context.Background(), "notifications", "k", struct{}{})

	assert.ErrorContains(t, err, "broker down")
}

func TestPublishRejectsUnencodable(t *testing.T) {
	p := &Producer{Writer: &recordingWriter{}, Log: logger.Discard()}

	err := p.Publish(context.Background(), "notifications", "k", make(chan int))

	assert.Error(t, err)
}

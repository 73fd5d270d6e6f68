package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/MedRecord-NER/pkg/errors"
)

type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	written   []kafka.Message
	closed    int
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		if err := m.writeFunc(ctx, msgs...); err != nil {
			return err
		}
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockKafkaWriter) Close() error {
	m.closed++
	return nil
}

func newTestProducer(w WriterInterface) *Producer {
	return newProducerWithWriter(w, ProducerConfig{
		Brokers:         []string{"localhost:9092"},
		MaxMessageBytes: 64,
	}, logging.NewNopLogger())
}

func TestProducer_Publish_Success(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic:   TopicRecordsExtracted,
		Key:     []byte("doc-1"),
		Value:   []byte(`{"ok":true}`),
		Headers: map[string]string{"event_type": EventRecordsExtracted},
	})
	require.NoError(t, err)

	require.Len(t, w.written, 1)
	got := w.written[0]
	assert.Equal(t, TopicRecordsExtracted, got.Topic)
	assert.Equal(t, []byte("doc-1"), got.Key)
	require.Len(t, got.Headers, 1)
	assert.Equal(t, "event_type", got.Headers[0].Key)
	assert.False(t, got.Time.IsZero())

	sent, failed := p.Stats()
	assert.Equal(t, int64(1), sent)
	assert.Equal(t, int64(0), failed)
}

func TestProducer_Publish_Validation(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})
	ctx := context.Background()

	tests := []struct {
		name string
		msg  *ProducerMessage
	}{
		{"nil message", nil},
		{"missing topic", &ProducerMessage{Value: []byte("x")}},
		{"empty value", &ProducerMessage{Topic: "t"}},
		{"oversized", &ProducerMessage{Topic: "t", Value: make([]byte, 65)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Publish(ctx, tt.msg)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestProducer_Publish_WriteError(t *testing.T) {
	w := &mockKafkaWriter{writeFunc: func(context.Context, ...kafka.Message) error {
		return errors.New("broker down")
	}}
	p := newTestProducer(w)

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMessageQueue))

	_, failed := p.Stats()
	assert.Equal(t, int64(1), failed)
}

func TestProducer_Close_Idempotent(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closed)

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")})
	assert.ErrorIs(t, err, ErrProducerClosed)
}

func TestValidateProducerConfig(t *testing.T) {
	assert.Error(t, ValidateProducerConfig(ProducerConfig{}))
	assert.Error(t, ValidateProducerConfig(ProducerConfig{Brokers: []string{"b"}, MaxRetries: -1}))
	assert.NoError(t, ValidateProducerConfig(ProducerConfig{Brokers: []string{"b"}}))
}

func TestNewProducer_InvalidConfig(t *testing.T) {
	_, err := NewProducer(ProducerConfig{}, nil)
	assert.Error(t, err)
}

//Personal.AI order the ending

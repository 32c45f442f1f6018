package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaNotifier_Send(t *testing.T) {
	w := &fakeWriter{}
	n := &KafkaNotifier{writer: w, from: "AstrobyAB <no-reply@astrobyab.com>"}

	err := n.Send(context.Background(), Message{To: "a@example.com", Subject: "s", Text: "t", Kind: "otp"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	assert.Equal(t, "a@example.com", string(w.msgs[0].Key))
	var decoded Message
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "AstrobyAB <no-reply@astrobyab.com>", decoded.From)
	assert.Equal(t, "t", decoded.Text)
}

func TestKafkaNotifier_SendError(t *testing.T) {
	n := &KafkaNotifier{writer: &fakeWriter{err: errors.New("broker down")}}

	err := n.Send(context.Background(), Message{To: "a@example.com"})
	assert.ErrorContains(t, err, "broker down")
}

func TestNewKafkaNotifier_SASL(t *testing.T) {
	n := NewKafkaNotifier(KafkaConfig{Brokers: []string{"k:9092"}, Topic: "mail", Username: "u", Password: "p"})
	w, ok := n.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "mail", w.Topic)
	assert.NotNil(t, w.Transport)
}

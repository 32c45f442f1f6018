package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// KafkaConfig параметры подключения к брокеру.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	Username string
	Password string
	From     string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier публикует письма в топик, который читает почтовый сервис.
type KafkaNotifier struct {
	writer messageWriter
	from   string
}

// NewKafkaNotifier создаёт продюсера. SASL/TLS включаются, если задан логин.
func NewKafkaNotifier(cfg KafkaConfig) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: 10 * time.Second,
	}
	if cfg.Username != "" {
		writer.Transport = &kafka.Transport{
			SASL: plain.Mechanism{
				Username: cfg.Username,
				Password: cfg.Password,
			},
			TLS: &tls.Config{},
		}
	}
	return &KafkaNotifier{writer: writer, from: cfg.From}
}

// Send синхронно публикует письмо; ключ сообщения - адрес получателя.
func (n *KafkaNotifier) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = n.from
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: encode message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.To),
		Value: value,
		Time:  time.Now(),
	}); err != nil {
		return fmt.Errorf("notify: publish to kafka: %w", err)
	}
	return nil
}

// Close закрывает продюсера.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

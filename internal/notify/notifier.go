package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/astrobyab/consult-backend/internal/logger"
)

// Message письмо для почтового сервиса.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	ReplyTo string `json:"reply_to,omitempty"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	Kind    string `json:"kind"`
}

// Notifier доставляет письма пользователю.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier пишет письма в лог вместо отправки. Только для локальной разработки.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, msg Message) error {
	logger.Entry(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
		"kind":    msg.Kind,
	}).Info(msg.Text)
	return nil
}

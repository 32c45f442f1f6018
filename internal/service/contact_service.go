package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/astrobyab/consult-backend/internal/logger"
	"github.com/astrobyab/consult-backend/internal/notify"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
	"github.com/astrobyab/consult-backend/internal/validation"
)

// ContactInput сообщение из формы обратной связи.
type ContactInput struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

// ContactService пересылает сообщения с сайта на почту владельца.
type ContactService struct {
	notifier notify.Notifier
	receiver string
}

func NewContactService(notifier notify.Notifier, receiver string) *ContactService {
	return &ContactService{notifier: notifier, receiver: receiver}
}

// Send проверяет форму и отправляет письмо. Ответ на него уходит автору формы.
func (s *ContactService) Send(ctx context.Context, in ContactInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)

	if in.Name == "" || in.Email == "" || in.Message == "" {
		return apperror.New(apperror.ErrCodeValidation, "Name, email, and message are required.")
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "Please enter a valid email.")
	}
	if err := validation.ValidateLength("message", in.Message, 0, validation.MaxMessageLength); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("subject", in.Subject, 0, validation.MaxShortText); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if s.notifier == nil || s.receiver == "" {
		return apperror.ErrNotifierMissing
	}

	if err := s.notifier.Send(ctx, contactMessage(s.receiver, in)); err != nil {
		logger.Entry(logrus.Fields{"reply_to": in.Email, "error": err.Error()}).Warn("Contact message delivery failed")
		return apperror.Wrap(err, apperror.ErrCodeDeliveryFailed, "Failed to send message.")
	}
	return nil
}

func contactMessage(receiver string, in ContactInput) notify.Message {
	subject := in.Subject
	if subject == "" {
		subject = "New Contact Form Message from " + in.Name
	}
	orDefault := func(v string) string {
		if v == "" {
			return "Not provided"
		}
		return v
	}

	text := strings.Join([]string{
		"New contact form submission",
		"",
		"Name: " + in.Name,
		"Email: " + in.Email,
		"Phone: " + orDefault(in.Phone),
		"Subject: " + orDefault(in.Subject),
		"",
		"Message:",
		in.Message,
	}, "\n")

	return notify.Message{
		To:      receiver,
		ReplyTo: in.Email,
		Subject: subject,
		Text:    text,
		Kind:    "contact",
	}
}

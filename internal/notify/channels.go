// Package notify sends booking confirmations, reminders and cancellations
// over two channels: a messenger (e-mail) and a texter (SMS). Delivery
// itself is external; production senders hand the payload to the broker
// where delivery workers pick it up.
package notify

import (
	"context"

	"github.com/gmc453/workshop-booker/internal/mq"
	"go.uber.org/zap"
)

// Routing keys for outbound notification payloads.
const (
	keyEmailSend = "notify.email"
	keySMSSend   = "notify.sms"
)

// Messenger delivers a subject/body message to an e-mail address.
type Messenger interface {
	Send(ctx context.Context, address, subject, body string) error
}

// Texter delivers a short message to a phone number.
type Texter interface {
	Send(ctx context.Context, number, message string) error
}

type emailPayload struct {
	Address string `json:"address"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type smsPayload struct {
	Number  string `json:"number"`
	Message string `json:"message"`
}

// AmqpMessenger publishes e-mail payloads to the notification exchange.
type AmqpMessenger struct {
	publisher *mq.Publisher
}

func NewAmqpMessenger(publisher *mq.Publisher) *AmqpMessenger {
	return &AmqpMessenger{publisher: publisher}
}

func (m *AmqpMessenger) Send(ctx context.Context, address, subject, body string) error {
	return m.publisher.PublishJSON(ctx, keyEmailSend, emailPayload{
		Address: address,
		Subject: subject,
		Body:    body,
	})
}

// AmqpTexter publishes SMS payloads to the notification exchange. Numbers
// are normalized to international form before publishing.
type AmqpTexter struct {
	publisher   *mq.Publisher
	countryCode string
}

func NewAmqpTexter(publisher *mq.Publisher, countryCode string) *AmqpTexter {
	return &AmqpTexter{publisher: publisher, countryCode: countryCode}
}

func (t *AmqpTexter) Send(ctx context.Context, number, message string) error {
	return t.publisher.PublishJSON(ctx, keySMSSend, smsPayload{
		Number:  NormalizePhone(number, t.countryCode),
		Message: message,
	})
}

// ConsoleMessenger logs instead of sending. Used in development when no
// broker is configured.
type ConsoleMessenger struct {
	logger *zap.Logger
}

func NewConsoleMessenger(logger *zap.Logger) *ConsoleMessenger {
	return &ConsoleMessenger{logger: logger}
}

func (m *ConsoleMessenger) Send(ctx context.Context, address, subject, body string) error {
	m.logger.Info("Email (console)",
		zap.String("address", address),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// ConsoleTexter logs instead of sending.
type ConsoleTexter struct {
	logger      *zap.Logger
	countryCode string
}

func NewConsoleTexter(logger *zap.Logger, countryCode string) *ConsoleTexter {
	return &ConsoleTexter{logger: logger, countryCode: countryCode}
}

func (t *ConsoleTexter) Send(ctx context.Context, number, message string) error {
	t.logger.Info("SMS (console)",
		zap.String("number", NormalizePhone(number, t.countryCode)),
		zap.String("message", message),
	)
	return nil
}

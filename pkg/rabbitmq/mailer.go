package rabbitmq

import (
	"context"

	"uptimer/internals/modules/alert"
)

// EventPublisher is satisfied by *Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// Mailer hands alert emails to the mail service as alert.email events.
type Mailer struct {
	pub EventPublisher
}

func NewMailer(pub EventPublisher) *Mailer {
	return &Mailer{pub: pub}
}

func (m *Mailer) Send(ctx context.Context, to string, template alert.Template, locals alert.Locals) error {
	return m.pub.Publish(ctx, EventAlertEmail, EmailPayload{
		To:       to,
		Template: template,
		Locals:   locals,
	})
}

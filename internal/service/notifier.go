package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stajtakip/internship-api/pkg/config"
	"github.com/stajtakip/internship-api/pkg/jobs"
	"github.com/stajtakip/internship-api/pkg/mail"
)

// Notification is one outbound message about a state transition.
type Notification struct {
	To      []string
	Subject string
	Body    string
}

// Notifier delivers notifications. Callers treat failures as advisory: a
// failed send never affects the transition that triggered it.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a plain function.
type NotifierFunc func(ctx context.Context, n Notification) error

// Send implements Notifier.
func (f NotifierFunc) Send(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// MailNotifier dispatches notifications asynchronously through a worker queue
// backed by SMTP. Send only enqueues; delivery and retry happen off the
// request path.
type MailNotifier struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewMailNotifier builds the notifier and its queue.
func NewMailNotifier(sender *mail.SMTPSender, cfg config.NotificationsConfig, logger *zap.Logger) *MailNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &MailNotifier{logger: logger}
	n.queue = jobs.NewQueue("notifications", func(ctx context.Context, job jobs.Job) error {
		notification, ok := job.Payload.(Notification)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		return sender.Send(mail.Message{
			To:      notification.To,
			Subject: notification.Subject,
			Body:    notification.Body,
		})
	}, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return n
}

// Start launches the delivery workers.
func (n *MailNotifier) Start(ctx context.Context) {
	n.queue.Start(ctx)
}

// Stop drains the workers.
func (n *MailNotifier) Stop() {
	n.queue.Stop()
}

// Send enqueues the notification.
func (n *MailNotifier) Send(_ context.Context, notification Notification) error {
	if len(notification.To) == 0 {
		return nil
	}
	return n.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "mail",
		Payload: notification,
	})
}

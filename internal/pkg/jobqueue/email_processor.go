package jobqueue

import (
	"context"
	"fmt"

	"github.com/FitLifeApp/FitLife/internal/pkg/mail"
)

// mailSender is swapped out in tests.
var mailSender = mail.SendMail

// processEmailNotificationJob delivers one queued member mail over SMTP.
func (q *Queue) processEmailNotificationJob(ctx context.Context, job *Job) error {
	_ = ctx
	payload, err := EmailNotificationPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid email notification payload: %w", err)
	}
	if payload.To == "" {
		return fmt.Errorf("email notification without recipient")
	}

	return mailSender(payload.To, payload.Subject, payload.Body)
}

// EnqueueEmailNotification queues a member mail for asynchronous delivery.
func EnqueueEmailNotification(to, subject, body string) (*Job, error) {
	payload := EmailNotificationPayload{To: to, Subject: subject, Body: body}
	return GetManager().GetQueue().EnqueueJob(JobTypeEmailNotification, payload.ToMap())
}

// NotifyByEmail adapts the queue to the billing notifier signature. Delivery
// failures surface through job retries, not the webhook response.
func NotifyByEmail(to, subject, body string) error {
	_, err := EnqueueEmailNotification(to, subject, body)
	return err
}

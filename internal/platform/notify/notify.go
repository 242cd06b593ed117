// Package notify delivers disbursement-success events to employees by
// email and to other systems over Kafka. Delivery is best effort; the
// caller only logs what fails here.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paycore/internal/domain/disbursement"
	"paycore/internal/platform/config"
)

// Email sends the salary-credited mail.
type Email struct {
	Mailer Mailer
	From   string
}

func (e *Email) DisbursementSucceeded(ctx context.Context, ev disbursement.Event) error {
	if ev.Email == "" {
		return nil
	}
	period := fmt.Sprintf("%s %d", time.Month(ev.Month), ev.Year)
	subject := fmt.Sprintf("Salary credited for %s", period)
	body := fmt.Sprintf(
		"Dear %s,\n\nYour salary of INR %d for %s has been credited on %s.\nTransaction reference: %s\n\nYour payslip is available in the employee portal.\n",
		ev.EmployeeName, ev.NetAmount, period, ev.PaidAt.Format("02 Jan 2006"), ev.TransactionRef,
	)
	return e.Mailer.Send(ctx, e.From, ev.Email, subject, body)
}

// Fanout delivers to every sink and joins their errors.
type Fanout []disbursement.Notifier

func (f Fanout) DisbursementSucceeded(ctx context.Context, ev disbursement.Event) error {
	var errs []error
	for _, n := range f {
		if err := n.DisbursementSucceeded(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New builds the sinks enabled in cfg. The returned close function
// releases the Kafka writer, if any.
func New(cfg config.Config) (disbursement.Notifier, func() error) {
	sinks := Fanout{}
	closeFn := func() error { return nil }
	if cfg.EmailEnabled {
		sinks = append(sinks, &Email{Mailer: NewMailer(cfg), From: cfg.EmailFrom})
	}
	if len(cfg.KafkaBrokers) > 0 {
		pub := NewPublisher(cfg.KafkaBrokers, cfg.KafkaDisbursementTopic)
		sinks = append(sinks, pub)
		closeFn = pub.Close
	}
	return sinks, closeFn
}

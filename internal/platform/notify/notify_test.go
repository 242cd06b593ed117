package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycore/internal/domain/disbursement"
	"paycore/internal/platform/config"
)

type recordingMailer struct {
	to, subject, body string
	calls             int
}

func (m *recordingMailer) Send(_ context.Context, _, to, subject, body string) error {
	m.calls++
	m.to, m.subject, m.body = to, subject, body
	return nil
}

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *recordingWriter) Close() error { return nil }

type failing struct{}

func (failing) DisbursementSucceeded(context.Context, disbursement.Event) error {
	return errors.New("sink down")
}

func event() disbursement.Event {
	return disbursement.Event{
		DisbursementID: "disb-1",
		PayrollID:      "pay-1",
		EmployeeID:     "emp-1",
		EmployeeName:   "Asha Rao",
		Email:          "asha@example.com",
		Month:          4,
		Year:           2024,
		NetAmount:      42823,
		TransactionRef: "UTR123",
		PaidAt:         time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestEmailNotification(t *testing.T) {
	m := &recordingMailer{}
	n := &Email{Mailer: m, From: "payroll@example.com"}

	require.NoError(t, n.DisbursementSucceeded(context.Background(), event()))
	assert.Equal(t, "asha@example.com", m.to)
	assert.Equal(t, "Salary credited for April 2024", m.subject)
	assert.True(t, strings.Contains(m.body, "INR 42823"))
	assert.True(t, strings.Contains(m.body, "UTR123"))

	ev := event()
	ev.Email = ""
	require.NoError(t, n.DisbursementSucceeded(context.Background(), ev))
	assert.Equal(t, 1, m.calls)
}

func TestPublisherMessage(t *testing.T) {
	w := &recordingWriter{}
	p := &Publisher{writer: w}

	require.NoError(t, p.DisbursementSucceeded(context.Background(), event()))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "disb-1", string(msg.Key))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, EventDisbursementSucceeded, string(msg.Headers[0].Value))

	var decoded disbursement.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event(), decoded)
}

func TestFanoutJoinsErrors(t *testing.T) {
	m := &recordingMailer{}
	f := Fanout{failing{}, &Email{Mailer: m, From: "payroll@example.com"}}

	err := f.DisbursementSucceeded(context.Background(), event())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink down")
	assert.Equal(t, 1, m.calls)
}

func TestNewFromConfig(t *testing.T) {
	n, closeFn := New(config.Config{})
	assert.Empty(t, n)
	require.NoError(t, closeFn())

	n, closeFn = New(config.Config{EmailEnabled: true, SMTPHost: "localhost", KafkaBrokers: []string{"localhost:9092"}, KafkaDisbursementTopic: "payroll.disbursements"})
	assert.Len(t, n, 2)
	require.NoError(t, closeFn())
}

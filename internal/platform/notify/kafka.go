package notify

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"paycore/internal/domain/disbursement"
)

const (
	EventDisbursementSucceeded = "disbursement.succeeded"
	AggregateDisbursement      = "disbursement"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes one message per event, keyed by disbursement id so
// events of a payment land on the same partition.
type Publisher struct {
	writer messageWriter
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (p *Publisher) DisbursementSucceeded(ctx context.Context, ev disbursement.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.DisbursementID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventDisbursementSucceeded)},
			{Key: "aggregate_type", Value: []byte(AggregateDisbursement)},
		},
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

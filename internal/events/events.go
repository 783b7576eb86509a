// Package events publishes delivery outcomes to Kafka for downstream
// consumers (reporting, token hygiene). Publishing is best-effort; a broker
// outage never blocks dispatch.
package events

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mithileshchellappan/pushgate/internal/auth"
	"github.com/mithileshchellappan/pushgate/internal/storage"
)

type Publisher struct {
	writer     *kafka.Writer
	signingKey *rsa.PrivateKey
}

// envelope is the wire form of one delivery event. When the server signing
// slot is configured, the signature covers the canonicalized receipt fields
// so consumers can verify provenance with the server public key.
type envelope struct {
	Receipt   storage.DeliveryReceipt `json:"receipt"`
	Signature string                  `json:"signature,omitempty"`
}

// NewPublisher creates a Kafka publisher for delivery receipts. signingKey
// may be nil, in which case events go out unsigned.
func NewPublisher(brokers []string, topic string, signingKey *rsa.PrivateKey) *Publisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},

		BatchSize:    200,
		BatchTimeout: 10 * time.Millisecond,

		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}
	return &Publisher{writer: writer, signingKey: signingKey}
}

// PublishReceipts emits one event per delivery receipt, keyed by message id
// so all receipts for a message land in the same partition.
func (p *Publisher) PublishReceipts(ctx context.Context, receipts []storage.DeliveryReceipt) error {
	if len(receipts) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(receipts))
	for _, receipt := range receipts {
		env := envelope{Receipt: receipt}
		if p.signingKey != nil {
			signature, err := auth.Sign(canonicalReceipt(receipt), p.signingKey)
			if err != nil {
				return err
			}
			env.Signature = signature
		}

		value, err := json.Marshal(env)
		if err != nil {
			return err
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(receipt.MessageID),
			Value: value,
		})
	}
	return p.writer.WriteMessages(ctx, messages...)
}

func canonicalReceipt(receipt storage.DeliveryReceipt) []byte {
	return auth.Canonicalize(auth.Params{
		"id":            receipt.ID,
		"message_id":    receipt.MessageID,
		"token_id":      receipt.TokenID,
		"status":        receipt.Status,
		"status_reason": receipt.StatusReason,
		"dispatched_at": receipt.DispatchedAt,
	}, "")
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

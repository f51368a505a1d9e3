package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/1dlvb/async-bank-app/internal/model"
)

// TransferEvent is the audit record emitted for every completed transfer.
type TransferEvent struct {
	TransactionID string `json:"transactionId"`
	FromAccountID string `json:"fromAccountId"`
	ToAccountID   string `json:"toAccountId"`
	Amount        string `json:"amount"`
	BookedAt      string `json:"bookedAt"`
}

// Producer publishes transfer events to Kafka. Delivery is best effort:
// the transfer is already durable in the store before an event is emitted.
type Producer struct {
	writer *kafka.Writer
	topic  string
	log    *zap.Logger
}

// NewProducer creates a Kafka producer for transfer events.
func NewProducer(brokers []string, topic string, log *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	log.Info("audit producer initialized", zap.String("topic", topic))
	return &Producer{
		writer: writer,
		topic:  topic,
		log:    log,
	}
}

// PublishTransfer emits one event per recorded transaction. The transaction
// id keys the message so retries of the same transfer land on one partition.
func (p *Producer) PublishTransfer(ctx context.Context, tx *model.Transaction) error {
	event := TransferEvent{
		TransactionID: tx.ID,
		FromAccountID: tx.FromAccountID,
		ToAccountID:   tx.ToAccountID,
		Amount:        tx.Amount.String(),
		BookedAt:      tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(tx.ID),
		Value: payload,
	})
	if err != nil {
		p.log.Error("failed to publish transfer event",
			zap.String("transaction_id", tx.ID),
			zap.Error(err))
		return err
	}
	return nil
}

// Close closes the Kafka writer.
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

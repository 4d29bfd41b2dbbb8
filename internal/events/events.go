// Package events publishes order lifecycle events.
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/order"
)

// DefaultTopic is the topic order events are written to.
const DefaultTopic = "bakery.orders"

// Encode writes e as a JSON object.
func Encode(enc *jx.Encoder, e order.Event) {
	enc.ObjStart()
	enc.FieldStart("type")
	enc.Str(string(e.Type))
	if e.OrderID != 0 {
		enc.FieldStart("orderId")
		enc.Int64(e.OrderID)
	}
	enc.FieldStart("userId")
	enc.Int64(e.UserID)
	enc.FieldStart("total")
	enc.Num(jx.Num(e.Total.StringFixed(2)))
	if e.PaymentIntentID != "" {
		enc.FieldStart("paymentIntentId")
		enc.Str(e.PaymentIntentID)
	}
	enc.FieldStart("lines")
	enc.Int(e.Lines)
	if e.Reason != "" {
		enc.FieldStart("reason")
		enc.Str(e.Reason)
	}
	enc.FieldStart("occurredAt")
	enc.Str(e.OccurredAt.UTC().Format(time.RFC3339Nano))
	enc.ObjEnd()
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ order.Publisher = (*KafkaPublisher)(nil)

// KafkaPublisher writes order events to a Kafka topic keyed by user, so that
// one customer's events stay ordered.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}}, nil
}

// Publish implements order.Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, e order.Event) error {
	enc := jx.GetEncoder()
	defer jx.PutEncoder(enc)
	Encode(enc, e)

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(e.UserID, 10)),
		Value: append([]byte(nil), enc.Bytes()...),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
		Time: e.OccurredAt,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "write message")
	}
	return nil
}

// Close flushes pending writes.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

var _ order.Publisher = LogPublisher{}

// LogPublisher logs events instead of shipping them. Used when no broker is
// configured.
type LogPublisher struct{}

// Publish implements order.Publisher.
func (LogPublisher) Publish(ctx context.Context, e order.Event) error {
	enc := jx.GetEncoder()
	defer jx.PutEncoder(enc)
	Encode(enc, e)

	zctx.From(ctx).Info("Order event",
		zap.String("type", string(e.Type)),
		zap.ByteString("event", enc.Bytes()),
	)
	return nil
}

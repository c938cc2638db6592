package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"eventpass/internal/models"
)

// Topic names for lifecycle messages.
const (
	TopicPurchaseAdded = "purchase-added"
	TopicEventDeleted  = "event-deleted"
	TopicTicketDeleted = "ticket-deleted"
)

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer}
}

func (p *Producer) publish(topic, key string, payload any) error {
	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: msgBytes,
		},
	)
}

// PublishPurchaseAdded streams a committed purchase line item.
func (p *Producer) PublishPurchaseAdded(item models.PurchaseItem) error {
	return p.publish(TopicPurchaseAdded, item.UserID, item)
}

// PublishEventDeleted streams an event deletion.
func (p *Producer) PublishEventDeleted(event models.Event) error {
	return p.publish(TopicEventDeleted, event.ID, event)
}

// PublishTicketDeleted streams a ticket deletion.
func (p *Producer) PublishTicketDeleted(ticket models.Ticket) error {
	return p.publish(TopicTicketDeleted, ticket.ID, ticket)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplatePaymentFailed     = "payment_failed"
)

// Message is the payload handed to the mail worker. Delivery itself happens
// outside this service; publishing to the bus is the whole contract here.
type Message struct {
	ID        uuid.UUID              `json:"id"`
	Template  string                 `json:"template"`
	Recipient string                 `json:"recipient"`
	OrderID   uuid.UUID              `json:"order_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

type Publisher struct {
	client *Client
	logger *zap.SugaredLogger
}

func NewPublisher(client *Client, logger *zap.SugaredLogger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger,
	}
}

func (p *Publisher) Notify(ctx context.Context, template, recipient string, orderID uuid.UUID, data map[string]interface{}) error {
	if !p.client.IsConnected() {
		return fmt.Errorf("no rabbitmq connection available")
	}

	msg := Message{
		ID:        uuid.New(),
		Template:  template,
		Recipient: recipient,
		OrderID:   orderID,
		Data:      data,
		Timestamp: time.Now(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notification serialization error: %w", err)
	}

	routingKey := fmt.Sprintf("notification.email.%s", template)

	err = p.client.Channel().Publish(
		p.client.config.Exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID.String(),
			Timestamp:    msg.Timestamp,
			Headers: amqp.Table{
				"order_id": orderID.String(),
				"template": template,
			},
		},
	)

	if err != nil {
		return fmt.Errorf("notification publish error: %w", err)
	}

	p.logger.Infow("notification published",
		"routing_key", routingKey, "order_id", orderID, "template", template)

	return nil
}

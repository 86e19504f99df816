package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"cocoaguard/internal/model"
)

// PredictionPublisher enqueues classification results for the persist
// worker. The queue is durable so results survive a broker restart.
type PredictionPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewPredictionPublisher(conn *amqp.Connection, queueName string) *PredictionPublisher {
	return &PredictionPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *PredictionPublisher) Publish(ctx context.Context, prediction model.Prediction) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(prediction)
	if err != nil {
		return fmt.Errorf("marshal prediction payload failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish prediction failed: %w", err)
	}
	return nil
}

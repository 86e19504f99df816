package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"cocoaguard/internal/model"
	"cocoaguard/internal/repository"
)

// PredictionPersistWorker drains the prediction queue and writes rows to
// MySQL, keeping inference requests off the database write path.
type PredictionPersistWorker struct {
	conn      *amqp.Connection
	repo      *repository.PredictionRepository
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPredictionPersistWorker(conn *amqp.Connection, repo *repository.PredictionRepository, queueName string) *PredictionPersistWorker {
	return &PredictionPersistWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
	}
}

func (w *PredictionPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var prediction model.Prediction
				if err := json.Unmarshal(d.Body, &prediction); err != nil {
					log.Printf("worker decode prediction failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := w.repo.Create(&prediction); err != nil {
					log.Printf("worker persist prediction failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *PredictionPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"expense_tracker/internal/observability"
	"expense_tracker/internal/queue"
	"expense_tracker/internal/task"
)

const maxDeliveryRetries = 3

func republishWithRetry(ch *amqp.Channel, msg *amqp.Delivery, retryCount int32) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	headers := amqp.Table{}
	if msg.Headers != nil {
		headers = msg.Headers
	}
	headers["x-retry-count"] = retryCount

	return ch.PublishWithContext(
		ctx,
		"",
		msg.RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: msg.ContentType,
			Body:        msg.Body,
			Headers:     headers,
		},
	)
}

// StartWorker consumes the task queue and drives each message through the
// processor. Task-level failures are terminal states recorded on the row;
// only infrastructure errors (load or claim failures) are redelivered.
func StartWorker(conn *amqp.Connection, db *sql.DB, repo task.TaskRepositoryInterface, processor task.ProcessorInterface, id int) {
	ch, err := conn.Channel()
	if err != nil {
		logrus.Fatalf("Worker %d failed to open channel: %v", id, err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		logrus.Fatalf("Worker %d failed to set QoS: %v", id, err)
	}

	msgs, err := ch.Consume(
		queue.TaskQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logrus.Fatalf("Worker %d failed to start consuming messages: %v", id, err)
		return
	}

	logrus.Infof("Worker %d started", id)

	for msg := range msgs {
		if observability.GlobalMetrics != nil {
			observability.GlobalMetrics.QueueMessagesConsumed.WithLabelValues(queue.TaskQueue).Inc()
		}

		var envelope task.QueueMessage
		if err := json.Unmarshal(msg.Body, &envelope); err != nil {
			logrus.WithError(err).Error("Invalid queue message, dropping")
			msg.Nack(false, false)
			continue
		}

		retryCount := int32(0)
		if msg.Headers != nil {
			if count, ok := msg.Headers["x-retry-count"].(int32); ok {
				retryCount = count
			}
		}

		logrus.Infof(
			"Worker %d processing task=%d type=%s user=%d (retry: %d)",
			id,
			envelope.ID,
			envelope.TaskType,
			envelope.UserID,
			retryCount,
		)

		t, err := repo.GetByID(db, envelope.ID)
		if err != nil {
			logrus.WithError(err).Errorf("Worker %d failed to load task %d", id, envelope.ID)
			requeueOrDrop(ch, &msg, retryCount, envelope.TaskType)
			continue
		}

		claimed, err := repo.MarkProcessing(db, t.ID)
		if err != nil {
			logrus.WithError(err).Errorf("Worker %d failed to claim task %d", id, t.ID)
			requeueOrDrop(ch, &msg, retryCount, envelope.TaskType)
			continue
		}
		if !claimed {
			// Already claimed via the processing endpoint or a redelivery.
			logrus.Infof("Worker %d skipping task %d: not pending", id, t.ID)
			msg.Ack(false)
			continue
		}

		outcome := processor.ProcessTask(context.Background(), t)
		if outcome.Err != "" {
			logrus.WithFields(logrus.Fields{
				"task_id": t.ID,
				"error":   outcome.Err,
			}).Warn("Task processing ended in failure")
		}

		msg.Ack(false)
	}
}

func requeueOrDrop(ch *amqp.Channel, msg *amqp.Delivery, retryCount int32, taskType string) {
	if retryCount >= maxDeliveryRetries {
		if observability.GlobalMetrics != nil {
			observability.GlobalMetrics.TasksFailedTotal.WithLabelValues(taskType, "max_retries").Inc()
		}
		msg.Nack(false, false)
		return
	}

	if err := republishWithRetry(ch, msg, retryCount+1); err != nil {
		logrus.WithError(err).Error("Failed to republish message")
		msg.Nack(false, false)
		return
	}

	if observability.GlobalMetrics != nil {
		observability.GlobalMetrics.QueueMessagesPublished.WithLabelValues(queue.TaskQueue).Inc()
	}
	msg.Ack(false)
}

package queue

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/campaignify/xenocrm-backend/internal/model"
	"github.com/campaignify/xenocrm-backend/internal/repository"
)

// DispatchTopic is the queue all dispatch jobs go through.
const DispatchTopic = "campaign_dispatch"

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// DispatchJob is the payload placed on the dispatch queue, one per
// message. Content is already rendered; the consumer only delivers.
type DispatchJob struct {
	MessageID int    `json:"message_id"`
	To        string `json:"to"`
	Channel   string `json:"channel"`
	Content   string `json:"content"`
}

// QueueDispatcher hands messages to the transport queue. Publishing
// successfully means "sent" (accepted by the transport); the delivery
// subscriber later upgrades the message to delivered or failed.
type QueueDispatcher struct {
	Queue Queue
	Topic string
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, msg *model.Message, customer *model.Customer) (model.MessageStatus, error) {
	topic := d.Topic
	if topic == "" {
		topic = DispatchTopic
	}
	job := DispatchJob{
		MessageID: msg.ID,
		To:        addressFor(customer, msg.Channel),
		Channel:   string(msg.Channel),
		Content:   msg.Content,
	}
	if err := d.Queue.Publish(topic, job); err != nil {
		return model.MessageStatusFailed, err
	}
	return model.MessageStatusSent, nil
}

func addressFor(customer *model.Customer, channel model.Channel) string {
	if channel == model.ChannelSMS {
		return customer.Phone
	}
	return customer.Email
}

// SendFunc performs the low-level transport send for one job.
type SendFunc func(job DispatchJob) error

// DeliveryHandler builds the subscriber handler that performs the
// transport send for one job and records the outcome on the message. A
// send error is returned to the queue so its retry policy applies.
func DeliveryHandler(messageRepo repository.MessageRepositoryInterface, send SendFunc) func(payload any) error {
	return func(payload any) error {
		job, ok := payload.(DispatchJob)
		if !ok {
			log.Printf("⚠️ invalid payload type %T, expected DispatchJob", payload)
			return nil // no retry
		}

		if err := send(job); err != nil {
			log.Println("⚠️ failed to deliver message", job.MessageID, ":", err)
			if uerr := messageRepo.UpdateStatus(job.MessageID, model.MessageStatusFailed, err.Error()); uerr != nil {
				log.Println("⚠️ failed to update message status:", uerr)
			}
			return err // triggers retry in queue
		}

		if err := messageRepo.UpdateStatus(job.MessageID, model.MessageStatusDelivered, ""); err != nil {
			log.Println("⚠️ failed to update message status:", err)
			return err
		}
		return nil
	}
}

// StartDeliverySubscriber attaches the delivery handler in a background
// goroutine, for transports whose Subscribe does not block the caller's
// startup path.
func StartDeliverySubscriber(q Queue, messageRepo repository.MessageRepositoryInterface, send SendFunc) {
	go func() {
		if err := q.Subscribe(DispatchTopic, DeliveryHandler(messageRepo, send)); err != nil {
			log.Println("⚠️ failed to start subscriber for", DispatchTopic, ":", err)
		}
	}()
}

// InMemoryQueue is an in-process queue with retry, used for development
// and tests when no AMQP broker is configured.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// jobEnvelope wraps a payload with retry info
type jobEnvelope struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := jobEnvelope{
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job jobEnvelope) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return // ACK
		}

		job.RetryCount++
		log.Printf("Job failed (attempt %d/%d): %+v, error: %v\n", job.RetryCount, job.MaxRetries, job.Payload, err)

		if job.RetryCount > job.MaxRetries {
			log.Printf("Job permanently failed after %d attempts: %+v\n", job.MaxRetries, job.Payload)
			return // No requeue
		}

		// Exponential backoff before retry
		time.Sleep(time.Duration(job.RetryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// MockSender simulates transport delivery with 90% success.
// TODO: replace with the real email/SMS provider client once credentials
// are provisioned.
func MockSender(job DispatchJob) error {
	if rand.Float64() < 0.9 {
		return nil // success
	}
	return fmt.Errorf("mock sending to %s failed", job.To)
}

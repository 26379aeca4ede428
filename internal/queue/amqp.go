package queue

import (
	"encoding/json"
	"log"

	"github.com/streadway/amqp"
)

// AMQPQueue implements Queue on a RabbitMQ connection with durable
// queues, so dispatch jobs survive a broker or worker restart.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func DialAMQP(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &AMQPQueue{conn: conn, ch: ch}, nil
}

func (q *AMQPQueue) Close() error {
	q.ch.Close()
	return q.conn.Close()
}

func (q *AMQPQueue) declare(topic string) (amqp.Queue, error) {
	return q.ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

// Publish marshals the payload to JSON and places it on a durable queue.
func (q *AMQPQueue) Publish(topic string, payload any) error {
	queue, err := q.declare(topic)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return q.ch.Publish(
		"",
		queue.Name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Subscribe consumes DispatchJob payloads from the topic. A handler error
// requeues the delivery up to three times via the x-retry-count header;
// after that the job is dropped with an ack so it cannot wedge the queue.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	queue, err := q.declare(topic)
	if err != nil {
		return err
	}

	msgs, err := q.ch.Consume(
		queue.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	for d := range msgs {
		var job DispatchJob
		if err := json.Unmarshal(d.Body, &job); err != nil {
			log.Println("Invalid job:", err)
			d.Ack(false)
			continue
		}

		if err := handler(job); err != nil {
			var retryCount int32
			if v, ok := d.Headers["x-retry-count"].(int32); ok {
				retryCount = v
			}
			if retryCount < 3 {
				// Requeue with an incremented retry header; a plain Nack
				// requeue would keep the original headers and retry forever.
				if perr := q.ch.Publish("", queue.Name, false, false, amqp.Publishing{
					ContentType:  "application/json",
					DeliveryMode: amqp.Persistent,
					Headers:      amqp.Table{"x-retry-count": retryCount + 1},
					Body:         d.Body,
				}); perr != nil {
					log.Println("Failed to requeue job:", perr)
				}
			} else {
				log.Println("Job permanently failed after retries, message ID:", job.MessageID)
			}
		}

		d.Ack(false)
	}
	return nil
}

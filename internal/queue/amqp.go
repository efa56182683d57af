package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpQueueName is the durable queue both sides declare.
const amqpQueueName = "panorama_tasks"

type amqpPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func newAMQPPublisher(brokerURL string) (*amqpPublisher, error) {
	conn, err := amqp.Dial(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("queue: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue: open channel: %w", err)
	}

	q, err := declareTaskQueue(ch)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &amqpPublisher{conn: conn, channel: ch, queue: q}, nil
}

// Publish sends the task marked Persistent so it survives a broker restart.
func (p *amqpPublisher) Publish(ctx context.Context, task *Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}

	return p.channel.PublishWithContext(ctx,
		"",           // default exchange — routes directly to the named queue
		p.queue.Name, // routing key == queue name for the default exchange
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (p *amqpPublisher) Close() error {
	p.channel.Close()
	return p.conn.Close()
}

type amqpConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

// newAMQPConsumer dials the broker and applies the configured prefetch as
// the channel QoS, so one slow worker cannot hoard deliveries.
func newAMQPConsumer(brokerURL string, prefetch int) (*amqpConsumer, error) {
	conn, err := amqp.Dial(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("queue: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue: open channel: %w", err)
	}

	if prefetch < 1 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("queue: set qos: %w", err)
	}

	q, err := declareTaskQueue(ch)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &amqpConsumer{conn: conn, channel: ch, queue: q}, nil
}

func (c *amqpConsumer) Consume(ctx context.Context) (<-chan Delivery, error) {
	raw, err := c.channel.Consume(
		c.queue.Name,
		"",    // consumer tag — auto-generated
		false, // auto-ack disabled — the worker decides when to ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("queue: consume: %w", err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-raw:
				if !ok {
					return
				}
				var task Task
				if err := json.Unmarshal(d.Body, &task); err != nil {
					slog.Error("discarding unparseable task", "component", "queue", "error", err)
					d.Nack(false, false)
					continue
				}
				dd := d
				select {
				case out <- Delivery{
					Task: &task,
					ack:  func() error { return dd.Ack(false) },
					nack: func() error { return dd.Nack(false, true) },
					drop: func() error { return dd.Nack(false, false) },
				}:
				case <-ctx.Done():
					dd.Nack(false, true)
					return
				}
			}
		}
	}()

	return out, nil
}

func (c *amqpConsumer) Close() error {
	c.channel.Close()
	return c.conn.Close()
}

// declareTaskQueue is shared by both sides so they always declare the same
// durable queue (idempotent).
func declareTaskQueue(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		amqpQueueName,
		true,  // durable — survives broker restart
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("queue: declare: %w", err)
	}
	return q, nil
}

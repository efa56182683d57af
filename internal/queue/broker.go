package queue

import (
	"context"
	"fmt"
	"net/url"
)

// Publisher is the send side of the broker.
type Publisher interface {
	Publish(ctx context.Context, task *Task) error
	Close() error
}

// Consumer is the receive side of the broker. The channel returned by
// Consume closes when the broker connection ends or ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context) (<-chan Delivery, error)
	Close() error
}

// Delivery wraps one received task with broker-specific acknowledgement
// hooks. Brokers without acknowledgement (the Redis list broker removes a
// task on pop) leave the hooks nil, and the methods become no-ops.
type Delivery struct {
	Task *Task

	ack  func() error
	nack func() error
	drop func() error
}

// NewDelivery wraps a task with acknowledgement hooks. Broker
// implementations build deliveries with it; tests pass counting hooks.
func NewDelivery(task *Task, ack, nack, drop func() error) Delivery {
	return Delivery{Task: task, ack: ack, nack: nack, drop: drop}
}

// Ack removes the task from the broker after successful processing.
func (d Delivery) Ack() error {
	if d.ack == nil {
		return nil
	}
	return d.ack()
}

// Nack requeues the task so another worker can retry it.
func (d Delivery) Nack() error {
	if d.nack == nil {
		return nil
	}
	return d.nack()
}

// Discard permanently rejects the task (e.g. unparseable payload).
func (d Delivery) Discard() error {
	if d.drop == nil {
		return nil
	}
	return d.drop()
}

// NewPublisher selects a broker from the URL scheme and connects to it.
func NewPublisher(brokerURL string) (Publisher, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("queue: broker url: %w", err)
	}
	switch u.Scheme {
	case "redis", "rediss":
		return newRedisPublisher(brokerURL)
	case "amqp", "amqps":
		return newAMQPPublisher(brokerURL)
	default:
		return nil, fmt.Errorf("queue: unsupported broker scheme %q", u.Scheme)
	}
}

// NewConsumer selects a broker from the URL scheme and connects to it.
// prefetch caps how many unacknowledged tasks the broker hands this
// consumer at once; the Redis list broker always delivers one at a time.
func NewConsumer(brokerURL string, prefetch int) (Consumer, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("queue: broker url: %w", err)
	}
	switch u.Scheme {
	case "redis", "rediss":
		return newRedisConsumer(brokerURL)
	case "amqp", "amqps":
		return newAMQPConsumer(brokerURL, prefetch)
	default:
		return nil, fmt.Errorf("queue: unsupported broker scheme %q", u.Scheme)
	}
}

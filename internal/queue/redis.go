package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// taskList is the Redis list the default broker pushes tasks onto.
const taskList = "panorama:tasks"

// popTimeout bounds each BRPOP so the consume loop can observe ctx
// cancellation between blocks.
const popTimeout = time.Second

func dialRedis(brokerURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("queue: parse broker url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("queue: dial redis broker: %w", err)
	}
	return rdb, nil
}

type redisPublisher struct {
	rdb *redis.Client
}

func newRedisPublisher(brokerURL string) (*redisPublisher, error) {
	rdb, err := dialRedis(brokerURL)
	if err != nil {
		return nil, err
	}
	return &redisPublisher{rdb: rdb}, nil
}

func (p *redisPublisher) Publish(ctx context.Context, task *Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.rdb.LPush(ctx, taskList, body).Err()
}

func (p *redisPublisher) Close() error {
	return p.rdb.Close()
}

// redisConsumer pops tasks off the list. A popped task is already removed
// from the broker, so deliveries carry no acknowledgement hooks.
type redisConsumer struct {
	rdb *redis.Client
}

func newRedisConsumer(brokerURL string) (*redisConsumer, error) {
	rdb, err := dialRedis(brokerURL)
	if err != nil {
		return nil, err
	}
	return &redisConsumer{rdb: rdb}, nil
}

func (c *redisConsumer) Consume(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil {
				return
			}

			res, err := c.rdb.BRPop(ctx, popTimeout, taskList).Result()
			if errors.Is(err, redis.Nil) {
				continue // nothing queued inside this block
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Error("broker pop failed", "component", "queue", "error", err)
				time.Sleep(popTimeout)
				continue
			}

			// BRPOP returns [key, value].
			var task Task
			if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
				slog.Error("dropping unparseable task", "component", "queue", "error", err)
				continue
			}

			select {
			case out <- Delivery{Task: &task}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (c *redisConsumer) Close() error {
	return c.rdb.Close()
}

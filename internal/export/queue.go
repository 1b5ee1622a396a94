package export

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tetebueno/dawarich/internal/logging"
)

const queueKey = "dawarich:exports:queue"

var ErrQueueFull = errors.New("export queue is full")

// Processor runs one export job.
type Processor interface {
	Process(ctx context.Context, exportID string) error
}

// RedisQueue keeps pending export ids in a Redis list so any instance can
// pick them up. Producers LPUSH, workers BRPOP.
type RedisQueue struct {
	client      *redis.Client
	key         string
	pollTimeout time.Duration
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client, key: queueKey, pollTimeout: 5 * time.Second}
}

func (q *RedisQueue) Enqueue(ctx context.Context, exportID string) error {
	return q.client.LPush(ctx, q.key, exportID).Err()
}

// Dequeue blocks up to timeout for the next id. It returns "" and no error
// when nothing arrived.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	// BRPOP replies with [key, value].
	return res[1], nil
}

// Run starts workers that process jobs until ctx is cancelled.
func (q *RedisQueue) Run(ctx context.Context, workers int, proc Processor) {
	var wg sync.WaitGroup
	wg.Add(max(workers, 1))
	for i := 0; i < max(workers, 1); i++ {
		go func(worker int) {
			defer wg.Done()
			for ctx.Err() == nil {
				id, err := q.Dequeue(ctx, q.pollTimeout)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logging.Warn().Err(err).Int("worker", worker).Msg("export queue poll failed")
					time.Sleep(time.Second)
					continue
				}
				if id == "" {
					continue
				}
				runJob(ctx, proc, id, worker)
			}
		}(i)
	}
	wg.Wait()
}

// LocalQueue is an in-process worker pool used when Redis is not configured.
type LocalQueue struct {
	jobs chan string
}

func NewLocalQueue(capacity int) *LocalQueue {
	return &LocalQueue{jobs: make(chan string, max(capacity, 1))}
}

func (q *LocalQueue) Enqueue(ctx context.Context, exportID string) error {
	select {
	case q.jobs <- exportID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Run starts workers that drain the queue until ctx is cancelled.
func (q *LocalQueue) Run(ctx context.Context, workers int, proc Processor) {
	var wg sync.WaitGroup
	wg.Add(max(workers, 1))
	for i := 0; i < max(workers, 1); i++ {
		go func(worker int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id := <-q.jobs:
					runJob(ctx, proc, id, worker)
				}
			}
		}(i)
	}
	wg.Wait()
}

func runJob(ctx context.Context, proc Processor, id string, worker int) {
	if err := proc.Process(ctx, id); err != nil {
		logging.Error().Err(err).Str("export_id", id).Int("worker", worker).Msg("export job failed")
	}
}

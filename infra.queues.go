package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// popBlockTimeout bounds each BLPOP so a cancelled context is noticed.
const popBlockTimeout = time.Second

// Predefined Queue IDs.
const (
	CreateQueue = "books:queue:creation"
	UpdateQueue = "books:queue:updating"
	DeleteQueue = "books:queue:deletion"
)

// Ensure *redisQueue implements Queuer.
var _ Queuer = (*redisQueue)(nil)

// Queuer describes a queue of books.
type Queuer interface {
	Push(ctx context.Context, qid string, book Book) error
	Pop(ctx context.Context, qids ...string) (string, Book, error)
}

// redisQueue represents a queue backed by redis lists.
type redisQueue struct {
	client *redis.Client
	block  time.Duration
}

func NewRedisQueue(client *redis.Client) Queuer {
	return &redisQueue{client: client, block: popBlockTimeout}
}

// Push enqueues a book onto the queue identified by qid.
func (q *redisQueue) Push(ctx context.Context, qid string, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, qid, bookBytes).Err()
}

// Pop blocks until a book is available on one of the queues then
// returns that queue id and the book. It returns once ctx is done.
func (q *redisQueue) Pop(ctx context.Context, qids ...string) (string, Book, error) {
	var book Book
	for {
		if err := ctx.Err(); err != nil {
			return "", book, err
		}
		infos, err := q.client.BLPop(ctx, q.block, qids...).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", book, err
		}
		if len(infos) != 2 {
			return "", book, fmt.Errorf("queue: unexpected pop reply of %d elements", len(infos))
		}
		if err = json.Unmarshal([]byte(infos[1]), &book); err != nil {
			return infos[0], book, err
		}
		return infos[0], book, nil
	}
}

package main

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const popRetryDelay = time.Second

// Consumer drains queues until its context is done.
type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

// mirrorConsumer replays the queued writes into a secondary storage.
type mirrorConsumer struct {
	logger *zap.Logger
	queue  Queuer
	repo   BookStorage
}

func NewMirrorConsumer(logger *zap.Logger, q Queuer, repo BookStorage) Consumer {
	return &mirrorConsumer{logger, q, repo}
}

// Consume applies each popped book based on its queue. Failures are logged
// and skipped. It returns nil once ctx is done.
func (mc *mirrorConsumer) Consume(ctx context.Context, qids ...string) error {
	for {
		qid, book, err := mc.queue.Pop(ctx, qids...)
		if ctx.Err() != nil {
			mc.logger.Info("consumer: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}
		if err != nil {
			mc.logger.Error("consumer: error on queue pop call", zap.String("qid", qid), zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(popRetryDelay):
			}
			continue
		}
		mc.apply(ctx, qid, book)
	}
}

func (mc *mirrorConsumer) apply(ctx context.Context, qid string, book Book) {
	switch qid {
	case CreateQueue, UpdateQueue:
		if err := mc.repo.Put(ctx, book); err != nil {
			mc.logger.Error("consumer: failed to mirror book", zap.String("qid", qid), zap.Int64("book.id", book.ID), zap.Error(err))
		}
	case DeleteQueue:
		if err := mc.repo.Delete(ctx, book.ID); err != nil && !errors.Is(err, ErrBookNotFound) {
			mc.logger.Error("consumer: failed to delete book", zap.Int64("book.id", book.ID), zap.Error(err))
		}
	default:
		mc.logger.Warn("consumer: received book on unknown queue id", zap.String("qid", qid), zap.Int64("book.id", book.ID))
	}
}

package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type poppedBook struct {
	qid  string
	book Book
	err  error
}

// newSliceQueue pops the given items in order then blocks until ctx is done.
func newSliceQueue(items []poppedBook) *MockQueuer {
	ch := make(chan poppedBook, len(items))
	for _, it := range items {
		ch <- it
	}
	return &MockQueuer{
		PopFunc: func(ctx context.Context, qids ...string) (string, Book, error) {
			select {
			case it := <-ch:
				return it.qid, it.book, it.err
			case <-ctx.Done():
				return "", Book{}, ctx.Err()
			}
		},
	}
}

func TestMirrorConsumer_Consume(t *testing.T) {
	mirror := newMemoryBookStorage()
	queue := newSliceQueue([]poppedBook{
		{CreateQueue, Book{ID: 1, Title: "A", Author: "X", Version: 1}, nil},
		{CreateQueue, Book{ID: 2, Title: "B", Author: "Y", Version: 1}, nil},
		{UpdateQueue, Book{ID: 1, Title: "A2", Author: "X", Version: 2}, nil},
		{DeleteQueue, Book{ID: 2}, nil},
		{DeleteQueue, Book{ID: 5}, nil},
		{"books:queue:unknown", Book{ID: 3}, nil},
	})

	consumer := NewMirrorConsumer(zap.NewNop(), queue, mirror)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- consumer.Consume(ctx, CreateQueue, UpdateQueue, DeleteQueue)
	}()

	require.Eventually(t, func() bool {
		books, _ := mirror.GetAll(context.Background())
		return len(books) == 1 && books[0].Version == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after context cancellation")
	}

	book, err := mirror.GetOne(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "A2", book.Title)
	_, err = mirror.GetOne(context.Background(), 3)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

// TestMirrorConsumer_PopFailure ensures a pop failure does not stop the consumer.
func TestMirrorConsumer_PopFailure(t *testing.T) {
	mirror := newMemoryBookStorage()
	queue := newSliceQueue([]poppedBook{
		{"", Book{}, errors.New("connection reset")},
		{CreateQueue, Book{ID: 1, Title: "A", Author: "X", Version: 1}, nil},
	})
	consumer := NewMirrorConsumer(zap.NewNop(), queue, mirror)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() {
		_ = consumer.Consume(ctx, CreateQueue)
	}()

	assert.Eventually(t, func() bool {
		_, err := mirror.GetOne(context.Background(), 1)
		return err == nil
	}, 4*time.Second, 20*time.Millisecond)
}

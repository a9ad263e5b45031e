package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pushedBook struct {
	qid  string
	book Book
}

func newRecordingQueue(err error) (*MockQueuer, *[]pushedBook) {
	pushed := &[]pushedBook{}
	return &MockQueuer{
		PushFunc: func(ctx context.Context, qid string, book Book) error {
			*pushed = append(*pushed, pushedBook{qid, book})
			return err
		},
	}, pushed
}

func TestBookService_Add(t *testing.T) {
	queue, pushed := newRecordingQueue(nil)
	bs := NewBookService(zap.NewNop(), NewMockClocker(), newMemoryBookStorage(), queue)

	id := int64(42)
	book, err := bs.Add(context.Background(), BookInput{ID: &id, Title: "B", Author: "Y", Description: StringPtr("")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), book.ID)
	assert.Equal(t, int64(1), book.Version)
	assert.Nil(t, book.Description)
	assert.Equal(t, NewMockClocker().Now(), book.CreatedAt)
	assert.Equal(t, book.CreatedAt, book.UpdatedAt)

	require.Len(t, *pushed, 1)
	assert.Equal(t, CreateQueue, (*pushed)[0].qid)
	assert.Equal(t, book, (*pushed)[0].book)
}

func TestBookService_AddIdsAreNeverReused(t *testing.T) {
	bs := NewBookService(zap.NewNop(), NewMockClocker(), newMemoryBookStorage(), nil)
	first, err := bs.Add(context.Background(), BookInput{Title: "A", Author: "X"})
	require.NoError(t, err)
	require.NoError(t, bs.Delete(context.Background(), first.ID))
	second, err := bs.Add(context.Background(), BookInput{Title: "A", Author: "X"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestBookService_Replace(t *testing.T) {
	storage := newMemoryBookStorage()
	queue, pushed := newRecordingQueue(nil)
	bs := NewBookService(zap.NewNop(), NewMockClocker(), storage, queue)
	created, err := bs.Add(context.Background(), BookInput{Title: "A", Author: "X", Description: StringPtr("d")})
	require.NoError(t, err)

	t.Run("should pass: blank description clears it", func(t *testing.T) {
		book, err := bs.Replace(context.Background(), created.ID, BookInput{Title: "A2", Author: "X2", Version: 1})
		require.NoError(t, err)
		assert.Equal(t, created.ID, book.ID)
		assert.Equal(t, "A2", book.Title)
		assert.Nil(t, book.Description)
		assert.Equal(t, int64(2), book.Version)
		assert.Equal(t, created.CreatedAt, book.CreatedAt)
		assert.Equal(t, UpdateQueue, (*pushed)[len(*pushed)-1].qid)
	})

	t.Run("should fail: stale version", func(t *testing.T) {
		_, err := bs.Replace(context.Background(), created.ID, BookInput{Title: "A3", Author: "X3", Version: 1})
		assert.ErrorIs(t, err, ErrBookVersionConflict)
	})

	t.Run("should fail: nonexistent book", func(t *testing.T) {
		_, err := bs.Replace(context.Background(), 99, BookInput{Title: "A3", Author: "X3"})
		assert.ErrorIs(t, err, ErrBookNotFound)
	})
}

func TestBookService_Patch(t *testing.T) {
	storage := newMemoryBookStorage()
	bs := NewBookService(zap.NewNop(), NewMockClocker(), storage, nil)
	created, err := bs.Add(context.Background(), BookInput{Title: "A", Author: "X", Description: StringPtr("d")})
	require.NoError(t, err)

	book, err := bs.Patch(context.Background(), created.ID, BookInput{Author: "Z", Description: StringPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "A", book.Title)
	assert.Equal(t, "Z", book.Author)
	assert.Equal(t, "d", book.DescriptionOrEmpty())
	assert.Equal(t, int64(2), book.Version)

	_, err = bs.Patch(context.Background(), created.ID, BookInput{Title: "B", Version: 1})
	assert.ErrorIs(t, err, ErrBookVersionConflict)

	_, err = bs.Patch(context.Background(), 77, BookInput{Title: "B"})
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestBookService_Delete(t *testing.T) {
	storage := newMemoryBookStorage()
	queue, pushed := newRecordingQueue(nil)
	bs := NewBookService(zap.NewNop(), NewMockClocker(), storage, queue)
	created, err := bs.Add(context.Background(), BookInput{Title: "A", Author: "X"})
	require.NoError(t, err)

	require.NoError(t, bs.Delete(context.Background(), created.ID))
	assert.Equal(t, pushedBook{DeleteQueue, Book{ID: created.ID}}, (*pushed)[len(*pushed)-1])

	err = bs.Delete(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)
	assert.Len(t, *pushed, 2)
}

// TestBookService_QueueFailure ensures a mirroring failure never fails the write.
func TestBookService_QueueFailure(t *testing.T) {
	queue, pushed := newRecordingQueue(errors.New("queue down"))
	bs := NewBookService(zap.NewNop(), NewMockClocker(), newMemoryBookStorage(), queue)
	book, err := bs.Add(context.Background(), BookInput{Title: "A", Author: "X"})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), book.ID)
	assert.Len(t, *pushed, 1)
}

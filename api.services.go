package main

import (
	"context"

	"go.uber.org/zap"
)

// BookServiceProvider is what the api handlers need from the books domain.
type BookServiceProvider interface {
	Add(ctx context.Context, in BookInput) (Book, error)
	GetOne(ctx context.Context, id int64) (Book, error)
	GetAll(ctx context.Context) ([]Book, error)
	Replace(ctx context.Context, id int64, in BookInput) (Book, error)
	Patch(ctx context.Context, id int64, in BookInput) (Book, error)
	Delete(ctx context.Context, id int64) error
}

type BookService struct {
	logger  *zap.Logger
	clock   Clocker
	storage BookStorage
	queue   Queuer
}

// NewBookService provides a book service. The queue is optional, when
// set every successful write is pushed to it for mirroring.
func NewBookService(logger *zap.Logger, clock Clocker, storage BookStorage, queue Queuer) *BookService {
	return &BookService{
		logger:  logger,
		clock:   clock,
		storage: storage,
		queue:   queue,
	}
}

// mirror pushes the book to the queue. A failure never fails the request.
func (bs *BookService) mirror(ctx context.Context, qid string, book Book) {
	if bs.queue == nil {
		return
	}
	if err := bs.queue.Push(ctx, qid, book); err != nil {
		bs.logger.Error("service: failed to push book to queue", zap.String("qid", qid), zap.Int64("book.id", book.ID), zap.Error(err))
	}
}

// Add creates a new book at version 1. Any id in the input is ignored.
func (bs *BookService) Add(ctx context.Context, in BookInput) (Book, error) {
	now := bs.clock.Now().UTC()
	book, err := bs.storage.Add(ctx, Book{
		Title:       in.Title,
		Author:      in.Author,
		Description: NormalizeDescription(in.Description),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return book, err
	}
	bs.mirror(ctx, CreateQueue, book)
	return book, nil
}

func (bs *BookService) GetOne(ctx context.Context, id int64) (Book, error) {
	return bs.storage.GetOne(ctx, id)
}

func (bs *BookService) GetAll(ctx context.Context) ([]Book, error) {
	return bs.storage.GetAll(ctx)
}

// Replace overwrites all the fields of the book. A non zero in.Version
// must match the stored version otherwise ErrBookVersionConflict is returned.
func (bs *BookService) Replace(ctx context.Context, id int64, in BookInput) (Book, error) {
	book, err := bs.storage.Update(ctx, id, Book{
		ID:          id,
		Title:       in.Title,
		Author:      in.Author,
		Description: NormalizeDescription(in.Description),
		Version:     in.Version,
		UpdatedAt:   bs.clock.Now().UTC(),
	})
	if err != nil {
		return book, err
	}
	bs.mirror(ctx, UpdateQueue, book)
	return book, nil
}

// Patch merges only the non empty fields of in into the stored book.
// The read version guards the write so a concurrent change is reported.
func (bs *BookService) Patch(ctx context.Context, id int64, in BookInput) (Book, error) {
	current, err := bs.storage.GetOne(ctx, id)
	if err != nil {
		return current, err
	}
	if in.Version != 0 && in.Version != current.Version {
		return current, ErrBookVersionConflict
	}
	merged := BookInput{
		Title:       current.Title,
		Author:      current.Author,
		Description: current.Description,
		Version:     current.Version,
	}
	if len(in.Title) != 0 {
		merged.Title = in.Title
	}
	if len(in.Author) != 0 {
		merged.Author = in.Author
	}
	if d := NormalizeDescription(in.Description); d != nil {
		merged.Description = d
	}
	return bs.Replace(ctx, id, merged)
}

func (bs *BookService) Delete(ctx context.Context, id int64) error {
	if err := bs.storage.Delete(ctx, id); err != nil {
		return err
	}
	bs.mirror(ctx, DeleteQueue, Book{ID: id})
	return nil
}

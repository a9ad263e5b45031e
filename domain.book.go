package main

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrBookNotFound        = errors.New("book not found")
	ErrBookVersionConflict = errors.New("book version conflict")

	// ErrStorageContention reports a write given up after too many
	// concurrent changes of the same record. It is not a version mismatch.
	ErrStorageContention = errors.New("storage: too many concurrent writes")
)

// Book represents a book entity. The ID is assigned by the storage on
// creation and Version grows by one on every successful update.
type Book struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description *string   `json:"description"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BookInput is the payload accepted on creation and replacement. ID is
// left nil on creation. A zero Version skips the optimistic locking check.
type BookInput struct {
	ID          *int64  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Description *string `json:"description"`
	Version     int64   `json:"version,omitempty"`
}

// DescriptionOrEmpty returns the description or an empty string when absent.
func (b Book) DescriptionOrEmpty() string {
	if b.Description == nil {
		return ""
	}
	return *b.Description
}

// BookStorage defines possible operations on book entity.
type BookStorage interface {
	// Add stores a new book under the next free id and returns it.
	Add(ctx context.Context, book Book) (Book, error)
	GetOne(ctx context.Context, id int64) (Book, error)
	// GetAll returns all books ordered by ascending id.
	GetAll(ctx context.Context) ([]Book, error)
	// Update replaces an existing book. When book.Version is not zero it must
	// match the stored version. CreatedAt is kept and Version is incremented.
	Update(ctx context.Context, id int64, book Book) (Book, error)
	Delete(ctx context.Context, id int64) error
	// Put writes the book as is under book.ID. Used to replay mirrored writes.
	Put(ctx context.Context, book Book) error
}

// NormalizeDescription turns a blank description into an absent one.
func NormalizeDescription(desc *string) *string {
	if desc == nil || len(strings.TrimSpace(*desc)) == 0 {
		return nil
	}
	return desc
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

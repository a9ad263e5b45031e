package main

import (
	"context"
	"sort"
	"sync"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

type MockBookStorage struct {
	AddFunc    func(ctx context.Context, book Book) (Book, error)
	GetOneFunc func(ctx context.Context, id int64) (Book, error)
	GetAllFunc func(ctx context.Context) ([]Book, error)
	UpdateFunc func(ctx context.Context, id int64, book Book) (Book, error)
	DeleteFunc func(ctx context.Context, id int64) error
	PutFunc    func(ctx context.Context, book Book) error
}

// Add mocks the behavior of book creation by the repository.
func (m *MockBookStorage) Add(ctx context.Context, book Book) (Book, error) {
	return m.AddFunc(ctx, book)
}

// GetOne mocks the behavior of retrieving a book by the repository.
func (m *MockBookStorage) GetOne(ctx context.Context, id int64) (Book, error) {
	return m.GetOneFunc(ctx, id)
}

// GetAll mocks the behavior of retrieving all books by the repository.
func (m *MockBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	return m.GetAllFunc(ctx)
}

// Update mocks the behavior of updating a book by the repository.
func (m *MockBookStorage) Update(ctx context.Context, id int64, book Book) (Book, error) {
	return m.UpdateFunc(ctx, id, book)
}

// Delete mocks the behavior of deleting a book by the repository.
func (m *MockBookStorage) Delete(ctx context.Context, id int64) error {
	return m.DeleteFunc(ctx, id)
}

// Put mocks the behavior of mirroring a book by the repository.
func (m *MockBookStorage) Put(ctx context.Context, book Book) error {
	return m.PutFunc(ctx, book)
}

type MockQueuer struct {
	PushFunc func(ctx context.Context, qid string, book Book) error
	PopFunc  func(ctx context.Context, qids ...string) (string, Book, error)
}

func (m *MockQueuer) Push(ctx context.Context, qid string, book Book) error {
	return m.PushFunc(ctx, qid, book)
}

func (m *MockQueuer) Pop(ctx context.Context, qids ...string) (string, Book, error) {
	return m.PopFunc(ctx, qids...)
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// NewTicker makes MockClocker usable as the logger clock.
func (mck *MockClocker) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}

// memoryBookStorage is a map based BookStorage which follows the
// same contract as the real engines.
type memoryBookStorage struct {
	mu    sync.Mutex
	seq   int64
	books map[int64]Book
}

func newMemoryBookStorage() *memoryBookStorage {
	return &memoryBookStorage{books: make(map[int64]Book)}
}

func (ms *memoryBookStorage) Add(_ context.Context, book Book) (Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.seq++
	book.ID = ms.seq
	ms.books[book.ID] = book
	return book, nil
}

func (ms *memoryBookStorage) GetOne(_ context.Context, id int64) (Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	book, ok := ms.books[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	return book, nil
}

func (ms *memoryBookStorage) GetAll(_ context.Context) ([]Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	books := make([]Book, 0, len(ms.books))
	for _, b := range ms.books {
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

func (ms *memoryBookStorage) Update(_ context.Context, id int64, book Book) (Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	current, ok := ms.books[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	if book.Version != 0 && book.Version != current.Version {
		return Book{}, ErrBookVersionConflict
	}
	book.ID = id
	book.Version = current.Version + 1
	book.CreatedAt = current.CreatedAt
	ms.books[id] = book
	return book, nil
}

func (ms *memoryBookStorage) Delete(_ context.Context, id int64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.books[id]; !ok {
		return ErrBookNotFound
	}
	delete(ms.books, id)
	return nil
}

func (ms *memoryBookStorage) Put(_ context.Context, book Book) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.books[book.ID] = book
	if book.ID > ms.seq {
		ms.seq = book.ID
	}
	return nil
}

// MockBookCatalog implements a fake BookCatalog.
type MockBookCatalog struct {
	ListBooksFunc   func(ctx context.Context) ([]Book, error)
	GetBookFunc     func(ctx context.Context, id int64) (Book, error)
	CreateBookFunc  func(ctx context.Context, in BookInput) (Book, error)
	ReplaceBookFunc func(ctx context.Context, id int64, in BookInput) (Book, error)
	DeleteBookFunc  func(ctx context.Context, id int64) error
}

func (m *MockBookCatalog) ListBooks(ctx context.Context) ([]Book, error) {
	return m.ListBooksFunc(ctx)
}

func (m *MockBookCatalog) GetBook(ctx context.Context, id int64) (Book, error) {
	return m.GetBookFunc(ctx, id)
}

func (m *MockBookCatalog) CreateBook(ctx context.Context, in BookInput) (Book, error) {
	return m.CreateBookFunc(ctx, in)
}

func (m *MockBookCatalog) ReplaceBook(ctx context.Context, id int64, in BookInput) (Book, error) {
	return m.ReplaceBookFunc(ctx, id, in)
}

func (m *MockBookCatalog) DeleteBook(ctx context.Context, id int64) error {
	return m.DeleteBookFunc(ctx, id)
}

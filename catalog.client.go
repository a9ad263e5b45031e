package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// maxResponseBytes bounds how much of a response body the client reads.
const maxResponseBytes = 4 << 20

var (
	ErrCatalogBookNotFound    = errors.New("catalog: book not found")
	ErrCatalogVersionConflict = errors.New("catalog: book version conflict")
)

// NetworkError reports a request which could not be sent or whose
// response could not be received, timeouts included.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError reports a response with a non 2xx status code.
type ServerError struct {
	Op        string
	Status    int
	Message   string
	RequestID string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server answered %d %s", e.Op, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s: server answered %d: %s", e.Op, e.Status, e.Message)
}

// Is makes 404 and 409 responses match their sentinel errors.
func (e *ServerError) Is(target error) bool {
	switch target {
	case ErrCatalogBookNotFound:
		return e.Status == http.StatusNotFound
	case ErrCatalogVersionConflict:
		return e.Status == http.StatusConflict
	}
	return false
}

// ParseError reports a response body which is not the expected json.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: invalid response body: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// BookCatalog is the remote books collection used by the catalog view.
type BookCatalog interface {
	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, id int64) (Book, error)
	CreateBook(ctx context.Context, in BookInput) (Book, error)
	ReplaceBook(ctx context.Context, id int64, in BookInput) (Book, error)
	DeleteBook(ctx context.Context, id int64) error
}

var _ BookCatalog = (*CatalogClient)(nil)

// CatalogClient talks to the books rest api located at its base url.
type CatalogClient struct {
	logger  *zap.Logger
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewCatalogClient provides a client for the api at config.APIBaseURL.
// The default http client is used when client is nil.
func NewCatalogClient(logger *zap.Logger, config *CatalogConfig, client *http.Client) *CatalogClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &CatalogClient{
		logger:  logger,
		baseURL: strings.TrimRight(config.APIBaseURL, "/"),
		timeout: config.RequestTimeout,
		client:  client,
	}
}

func (c *CatalogClient) bookURL(id int64) string {
	return c.baseURL + "/books/" + strconv.FormatInt(id, 10)
}

// do sends the request and decodes a 2xx body into out when not nil.
func (c *CatalogClient) do(ctx context.Context, op, method, url string, body interface{}, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var payload io.Reader
	if body != nil {
		data, err := jsonCodec.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if requestID := GetValueFromContext(ctx, RequestIDContextKey); requestID != "" {
		req.Header.Set(RequestIDHeader, requestID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("catalog: request failed", zap.String("op", op), zap.String("url", url), zap.Error(err))
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &ServerError{Op: op, Status: resp.StatusCode}
		var envelope APIError
		if jsonCodec.Unmarshal(data, &envelope) == nil {
			serr.Message = envelope.Message
			serr.RequestID = envelope.RequestID
		}
		c.logger.Info("catalog: server error", zap.String("op", op), zap.Int("status", serr.Status), zap.String("request.id", serr.RequestID))
		return serr
	}

	if out == nil {
		return nil
	}
	if err := jsonCodec.Unmarshal(data, out); err != nil {
		return &ParseError{Op: op, Err: err}
	}
	return nil
}

// ListBooks fetches the whole collection.
func (c *CatalogClient) ListBooks(ctx context.Context) ([]Book, error) {
	var books []Book
	if err := c.do(ctx, "list books", http.MethodGet, c.baseURL+"/books", nil, &books); err != nil {
		return nil, err
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

func (c *CatalogClient) GetBook(ctx context.Context, id int64) (Book, error) {
	var book Book
	err := c.do(ctx, "get book", http.MethodGet, c.bookURL(id), nil, &book)
	return book, err
}

// CreateBook sends the new book with its id left unset.
func (c *CatalogClient) CreateBook(ctx context.Context, in BookInput) (Book, error) {
	in.ID = nil
	in.Version = 0
	var book Book
	err := c.do(ctx, "create book", http.MethodPost, c.baseURL+"/books", in, &book)
	return book, err
}

// ReplaceBook sends the full record. A non zero version must match the
// stored one otherwise ErrCatalogVersionConflict is reported.
func (c *CatalogClient) ReplaceBook(ctx context.Context, id int64, in BookInput) (Book, error) {
	in.ID = &id
	var book Book
	err := c.do(ctx, "replace book", http.MethodPut, c.bookURL(id), in, &book)
	return book, err
}

func (c *CatalogClient) DeleteBook(ctx context.Context, id int64) error {
	return c.do(ctx, "delete book", http.MethodDelete, c.bookURL(id), nil, nil)
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	HBooks        string = "books"
	KBooksSeq     string = "books:seq"
	maxTxAttempts int    = 10
)

var _ BookStorage = (*redisBookStorage)(nil)

type redisBookStorage struct {
	logger *zap.Logger
	client *redis.Client
}

// NewRedisBookStorage provides an instance of redis-based book storage.
// Books are json values of the `books` hash, keyed by their id.
func NewRedisBookStorage(logger *zap.Logger, client *redis.Client) BookStorage {
	return &redisBookStorage{
		logger: logger,
		client: client,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Host, config.Port),
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolSize:     config.PoolSize,
		PoolTimeout:  config.PoolTimeout,
		Password:     config.Password,
		Username:     config.Username,
		DB:           config.DatabaseIndex,

		ContextTimeoutEnabled: true,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

func field(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Add inserts a new book record under the next value of the ids counter.
func (rs *redisBookStorage) Add(ctx context.Context, book Book) (Book, error) {
	id, err := rs.client.Incr(ctx, KBooksSeq).Result()
	if err != nil {
		return book, err
	}
	book.ID = id
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return book, err
	}
	return book, rs.client.HSet(ctx, HBooks, field(id), bookBytes).Err()
}

// GetOne retrieves a book record based on its ID.
func (rs *redisBookStorage) GetOne(ctx context.Context, id int64) (Book, error) {
	var book Book
	bookJSONString, err := rs.client.HGet(ctx, HBooks, field(id)).Result()
	if errors.Is(err, redis.Nil) {
		return book, ErrBookNotFound
	}
	if err != nil {
		return book, err
	}
	err = json.Unmarshal([]byte(bookJSONString), &book)
	return book, err
}

// Delete removes a book record based on its ID.
func (rs *redisBookStorage) Delete(ctx context.Context, id int64) error {
	n, err := rs.client.HDel(ctx, HBooks, field(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookNotFound
	}
	return nil
}

// casBookScript replaces a hash field only when it still holds the
// value read by the caller. It returns 0 when the field is gone and -1
// when it changed meanwhile.
var casBookScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], ARGV[1])
if not current then
	return 0
end
if current ~= ARGV[2] then
	return -1
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
return 1
`)

// putBookScript writes a book as is and moves the ids counter up to its
// id in the same step so it never goes back below an issued id.
var putBookScript = redis.NewScript(`
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
local id = tonumber(ARGV[1])
local seq = tonumber(redis.call('GET', KEYS[2]) or '0')
if id > seq then
	redis.call('SET', KEYS[2], ARGV[1])
end
return 1
`)

// Update replaces an existing book record. The stored value is swapped
// only if untouched since it was read, a concurrent write on the same
// book makes it read again and retry. Writes on other books never do.
func (rs *redisBookStorage) Update(ctx context.Context, id int64, book Book) (Book, error) {
	for i := 0; i < maxTxAttempts; i++ {
		raw, err := rs.client.HGet(ctx, HBooks, field(id)).Result()
		if errors.Is(err, redis.Nil) {
			return book, ErrBookNotFound
		}
		if err != nil {
			return book, err
		}
		var current Book
		if err = json.Unmarshal([]byte(raw), &current); err != nil {
			return book, err
		}
		if book.Version != 0 && book.Version != current.Version {
			return book, ErrBookVersionConflict
		}

		updated := book
		updated.ID = id
		updated.CreatedAt = current.CreatedAt
		updated.Version = current.Version + 1
		bookBytes, err := json.Marshal(updated)
		if err != nil {
			return book, err
		}

		res, err := casBookScript.Run(ctx, rs.client, []string{HBooks}, field(id), raw, bookBytes).Int()
		if err != nil {
			return book, err
		}
		switch res {
		case 1:
			return updated, nil
		case 0:
			return book, ErrBookNotFound
		}
		rs.logger.Debug("storage: redis update retried", zap.Int64("book.id", id), zap.Int("attempt", i+1))
	}
	return book, ErrStorageContention
}

// Put writes the book as is and keeps the ids counter ahead of its id.
func (rs *redisBookStorage) Put(ctx context.Context, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return putBookScript.Run(ctx, rs.client, []string{HBooks, KBooksSeq}, field(book.ID), bookBytes).Err()
}

// GetAll retrieves a list of all books stored in the redis database.
func (rs *redisBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	values, err := rs.client.HVals(ctx, HBooks).Result()
	if err != nil {
		return nil, err
	}
	books := make([]Book, 0, len(values))
	for _, bookJSONString := range values {
		var book Book
		if err = json.Unmarshal([]byte(bookJSONString), &book); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

var _ BookStorage = (*boltBookStorage)(nil)

type boltBookStorage struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *BoltDBConfig) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create the database folder, %v", err)
	}
	db, err := bolt.Open(config.FilePath, 0o600, &bolt.Options{Timeout: config.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltBookStorage provides an instance of bolt-based book storage.
func NewBoltBookStorage(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) *boltBookStorage {
	return &boltBookStorage{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// itob returns an 8-byte big endian representation of id so
// that cursors walk the bucket in ascending id order.
func itob(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

// Close shuts down the bolt-based book storage.
func (bs *boltBookStorage) Close() error {
	return bs.client.Close()
}

func (bs *boltBookStorage) bucket(tx *bolt.Tx) *bolt.Bucket {
	return tx.Bucket([]byte(bs.config.BucketName))
}

// Add inserts a new book record under the next bucket sequence.
func (bs *boltBookStorage) Add(_ context.Context, book Book) (Book, error) {
	err := bs.client.Update(func(tx *bolt.Tx) error {
		b := bs.bucket(tx)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		book.ID = int64(seq)
		bookBytes, err := json.Marshal(book)
		if err != nil {
			return err
		}
		return b.Put(itob(book.ID), bookBytes)
	})
	return book, err
}

// GetOne retrieves a book record based on its ID from boltdb store.
func (bs *boltBookStorage) GetOne(_ context.Context, id int64) (Book, error) {
	var book Book
	err := bs.client.View(func(tx *bolt.Tx) error {
		result := bs.bucket(tx).Get(itob(id))
		if result == nil {
			return ErrBookNotFound
		}
		return json.Unmarshal(result, &book)
	})
	return book, err
}

// Delete removes a book record based on its ID from boltdb store.
func (bs *boltBookStorage) Delete(_ context.Context, id int64) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		b := bs.bucket(tx)
		if b.Get(itob(id)) == nil {
			return ErrBookNotFound
		}
		return b.Delete(itob(id))
	})
}

// Update replaces an existing book record inside a single read-write
// transaction so the version check and the write are atomic.
func (bs *boltBookStorage) Update(_ context.Context, id int64, book Book) (Book, error) {
	err := bs.client.Update(func(tx *bolt.Tx) error {
		b := bs.bucket(tx)
		result := b.Get(itob(id))
		if result == nil {
			return ErrBookNotFound
		}
		var current Book
		if err := json.Unmarshal(result, &current); err != nil {
			return err
		}
		if book.Version != 0 && book.Version != current.Version {
			return ErrBookVersionConflict
		}
		book.ID = id
		book.CreatedAt = current.CreatedAt
		book.Version = current.Version + 1
		bookBytes, err := json.Marshal(book)
		if err != nil {
			return err
		}
		return b.Put(itob(id), bookBytes)
	})
	return book, err
}

// Put writes the book as is and keeps the bucket sequence ahead of its id.
func (bs *boltBookStorage) Put(_ context.Context, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return bs.client.Update(func(tx *bolt.Tx) error {
		b := bs.bucket(tx)
		if uint64(book.ID) > b.Sequence() {
			if err := b.SetSequence(uint64(book.ID)); err != nil {
				return err
			}
		}
		return b.Put(itob(book.ID), bookBytes)
	})
}

// GetAll retrieves a list of all books stored in the bolt database.
func (bs *boltBookStorage) GetAll(_ context.Context) ([]Book, error) {
	books := []Book{}
	err := bs.client.View(func(tx *bolt.Tx) error {
		c := bs.bucket(tx).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var book Book
			if err := json.Unmarshal(v, &book); err != nil {
				return err
			}
			books = append(books, book)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var _ BookStorage = (*postgresBookStorage)(nil)

const createBooksTableQuery = `CREATE TABLE IF NOT EXISTS books (
	id          BIGSERIAL PRIMARY KEY,
	title       TEXT NOT NULL,
	author      TEXT NOT NULL,
	description TEXT,
	version     BIGINT NOT NULL DEFAULT 1,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`

const bookColumns = `id, title, author, description, version, created_at, updated_at`

type postgresBookStorage struct {
	logger *zap.Logger
	pool   *pgxpool.Pool
}

// GetPostgresPool connects to the database, checks the connection and
// ensures the books table exists.
func GetPostgresPool(ctx context.Context, config *PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = config.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("test connection failed: %w", err)
	}
	if _, err = pool.Exec(ctx, createBooksTableQuery); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create books table: %w", err)
	}
	return pool, nil
}

// NewPostgresBookStorage provides an instance of postgres-based book storage.
func NewPostgresBookStorage(logger *zap.Logger, pool *pgxpool.Pool) BookStorage {
	return &postgresBookStorage{logger: logger, pool: pool}
}

func scanBook(row pgx.Row) (Book, error) {
	var book Book
	err := row.Scan(&book.ID, &book.Title, &book.Author, &book.Description, &book.Version, &book.CreatedAt, &book.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return book, ErrBookNotFound
	}
	return book, err
}

// Add inserts a new book record and lets the sequence assign its id.
func (ps *postgresBookStorage) Add(ctx context.Context, book Book) (Book, error) {
	row := ps.pool.QueryRow(ctx,
		`INSERT INTO books (title, author, description, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+bookColumns,
		book.Title, book.Author, book.Description, book.Version, book.CreatedAt, book.UpdatedAt,
	)
	return scanBook(row)
}

// GetOne retrieves a book record based on its ID.
func (ps *postgresBookStorage) GetOne(ctx context.Context, id int64) (Book, error) {
	return scanBook(ps.pool.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id))
}

// GetAll retrieves all books ordered by id.
func (ps *postgresBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	rows, err := ps.pool.Query(ctx, `SELECT `+bookColumns+` FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// Update replaces an existing book record. The version check is part of
// the statement predicate, a missed row is then told apart between a
// missing book and a stale version.
func (ps *postgresBookStorage) Update(ctx context.Context, id int64, book Book) (Book, error) {
	row := ps.pool.QueryRow(ctx,
		`UPDATE books SET title = $2, author = $3, description = $4, updated_at = $5, version = version + 1
		WHERE id = $1 AND ($6::BIGINT = 0 OR version = $6) RETURNING `+bookColumns,
		id, book.Title, book.Author, book.Description, book.UpdatedAt, book.Version,
	)
	updated, err := scanBook(row)
	if !errors.Is(err, ErrBookNotFound) {
		return updated, err
	}

	var exists bool
	if err = ps.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, id).Scan(&exists); err != nil {
		return book, err
	}
	if exists {
		return book, ErrBookVersionConflict
	}
	return book, ErrBookNotFound
}

// Delete removes a book record based on its ID.
func (ps *postgresBookStorage) Delete(ctx context.Context, id int64) error {
	tag, err := ps.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Put upserts the book as is and moves the id sequence past its id.
// The sequence never goes back below an id it already issued.
func (ps *postgresBookStorage) Put(ctx context.Context, book Book) error {
	return pgx.BeginFunc(ctx, ps.pool, func(tx pgx.Tx) error {
		// inserts wait so no id is drawn while the sequence moves.
		if _, err := tx.Exec(ctx, `LOCK TABLE books IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO books (`+bookColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, author = EXCLUDED.author,
			description = EXCLUDED.description, version = EXCLUDED.version,
			created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at`,
			book.ID, book.Title, book.Author, book.Description, book.Version, book.CreatedAt, book.UpdatedAt,
		)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`SELECT setval('books_id_seq', GREATEST((SELECT MAX(id) FROM books), (SELECT last_value FROM books_id_seq), 1))`)
		return err
	})
}

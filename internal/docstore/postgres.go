package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresDocumentStore implements DocumentStore on a single jsonb table.
type PostgresDocumentStore struct {
	db *sql.DB
}

func NewPostgresDocumentStore(db *sql.DB) *PostgresDocumentStore {
	return &PostgresDocumentStore{db: db}
}

// EnsureSchema creates the documents table if it does not exist.
func (ds *PostgresDocumentStore) EnsureSchema(ctx context.Context) error {
	_, err := ds.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			doc_id     TEXT NOT NULL,
			owner_id   TEXT NOT NULL,
			doc        JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, doc_id)
		)`)
	if err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	_, err = ds.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_documents_owner
		ON documents (collection, owner_id)`)
	if err != nil {
		return fmt.Errorf("failed to create owner index: %w", err)
	}

	return nil
}

func (ds *PostgresDocumentStore) Get(ctx context.Context, collection, id string) (json.RawMessage, bool, error) {
	var doc []byte
	err := ds.db.QueryRowContext(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND doc_id = $2`,
		collection, id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get document: %w", err)
	}
	return json.RawMessage(doc), true, nil
}

func (ds *PostgresDocumentStore) Set(ctx context.Context, collection, id, owner string, doc any) error {
	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = ds.db.ExecContext(ctx, `
		INSERT INTO documents (collection, doc_id, owner_id, doc, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (collection, doc_id)
		DO UPDATE SET owner_id = EXCLUDED.owner_id, doc = EXCLUDED.doc, updated_at = now()`,
		collection, id, owner, jsonDoc)
	if err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}

	return nil
}

func (ds *PostgresDocumentStore) Query(ctx context.Context, collection, owner string) ([]json.RawMessage, error) {
	rows, err := ds.db.QueryContext(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND owner_id = $2`,
		collection, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, json.RawMessage(doc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

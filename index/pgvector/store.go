/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pgvector implements the similarity index on PostgreSQL with the
// pgvector extension. All collections share one table, namespaced by a
// collection column; the cosine distance operator <=> provides
// nearest-neighbor ordering, so similarity = 1 - distance.
package pgvector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"

	"chainguard.dev/memalign/index"
)

// Store owns the connection pool and embedder shared by all collections.
type Store struct {
	pool     *pgxpool.Pool
	embedder index.Embedder
}

// Open connects to the database, verifies connectivity, and ensures the
// schema exists with the given embedding dimensionality.
func Open(ctx context.Context, databaseURL string, embedder index.Embedder, dimensions int) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{pool: pool, embedder: embedder}
	if err := s.ensureSchema(ctx, dimensions); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context, dimensions int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memalign_documents (
			collection text NOT NULL,
			id text NOT NULL,
			document text NOT NULL,
			metadata jsonb NOT NULL DEFAULT '{}'::jsonb,
			embedding vector(%d) NOT NULL,
			PRIMARY KEY (collection, id)
		)`, dimensions),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Collection returns a handle to the named collection. Collections need no
// explicit creation; they exist once a document is upserted.
func (s *Store) Collection(name string) index.Collection {
	return &collection{store: s, name: name}
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// collection scopes store operations to one collection name.
type collection struct {
	store *Store
	name  string
}

var _ index.Collection = (*collection)(nil)

func (c *collection) Upsert(ctx context.Context, docs ...index.Document) error {
	for _, doc := range docs {
		vector, err := c.store.embedder.Embed(ctx, doc.Text)
		if err != nil {
			return fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
		}
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", doc.ID, err)
		}

		_, err = c.store.pool.Exec(ctx, `
			INSERT INTO memalign_documents (collection, id, document, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (collection, id)
			DO UPDATE SET document = EXCLUDED.document, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding
		`, c.name, doc.ID, doc.Text, meta, pgvec.NewVector(vector))
		if err != nil {
			return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
		}
	}
	return nil
}

func (c *collection) Get(ctx context.Context, ids ...string) ([]index.Document, error) {
	query := `SELECT id, document, metadata FROM memalign_documents WHERE collection = $1`
	args := []any{c.name}
	if len(ids) > 0 {
		query += ` AND id = ANY($2)`
		args = append(args, ids)
	}

	rows, err := c.store.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []index.Document
	for rows.Next() {
		var doc index.Document
		var meta []byte
		if err := rows.Scan(&doc.ID, &doc.Text, &meta); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if err := json.Unmarshal(meta, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return docs, nil
}

func (c *collection) Query(ctx context.Context, text string, n int) ([]index.Match, error) {
	if n <= 0 {
		return nil, nil
	}
	vector, err := c.store.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	rows, err := c.store.pool.Query(ctx, `
		SELECT id, document, metadata, embedding <=> $2 AS distance
		FROM memalign_documents
		WHERE collection = $1
		ORDER BY embedding <=> $2
		LIMIT $3
	`, c.name, pgvec.NewVector(vector), n)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest neighbors: %w", err)
	}
	defer rows.Close()

	var matches []index.Match
	for rows.Next() {
		var m index.Match
		var meta []byte
		if err := rows.Scan(&m.ID, &m.Text, &meta, &m.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		if err := json.Unmarshal(meta, &m.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", m.ID, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}

func (c *collection) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.store.pool.Exec(ctx,
		`DELETE FROM memalign_documents WHERE collection = $1 AND id = ANY($2)`, c.name, ids)
	if err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

func (c *collection) Count(ctx context.Context) (int, error) {
	var count int
	err := c.store.pool.QueryRow(ctx,
		`SELECT count(*) FROM memalign_documents WHERE collection = $1`, c.name).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

func (c *collection) Drop(ctx context.Context) error {
	_, err := c.store.pool.Exec(ctx,
		`DELETE FROM memalign_documents WHERE collection = $1`, c.name)
	if err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", c.name, err)
	}
	return nil
}

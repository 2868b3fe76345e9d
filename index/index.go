/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package index defines the similarity index contract: a nearest-neighbor
// document store keyed by text. The core treats it as a black box; only
// distance semantics are fixed (cosine distance in [0, 2], so
// similarity = 1 - distance).
package index

import "context"

// Document is one stored item in a collection.
type Document struct {
	// ID uniquely identifies the document within its collection.
	ID string
	// Text is the embedded representation used for similarity queries.
	Text string
	// Metadata holds opaque string fields attached by the caller.
	Metadata map[string]string
}

// Match is a query result: a document plus its cosine distance to the query.
type Match struct {
	Document
	// Distance is the cosine distance to the query text, in [0, 2].
	Distance float64
}

// Collection is one logically isolated set of documents. MemAlign keeps two
// collections per judge: principles (semantic memory) and examples
// (episodic memory).
type Collection interface {
	// Upsert inserts or replaces documents by id.
	Upsert(ctx context.Context, docs ...Document) error

	// Get returns documents by id, or every document when no ids are given.
	// Result ordering is unspecified. Unknown ids are silently skipped.
	Get(ctx context.Context, ids ...string) ([]Document, error)

	// Query returns up to n documents nearest to text, nearest first.
	Query(ctx context.Context, text string, n int) ([]Match, error)

	// Delete removes documents by id. Unknown ids are not an error.
	Delete(ctx context.Context, ids ...string) error

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Drop removes the collection and all its documents.
	Drop(ctx context.Context) error
}

// Embedder turns text into an embedding vector. The model behind it is
// opaque to the core.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

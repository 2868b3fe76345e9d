/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package indextest provides an in-memory index.Collection for tests,
// with scripted distances instead of real embeddings.
package indextest

import (
	"context"
	"maps"
	"sort"
	"sync"

	"chainguard.dev/memalign/index"
)

// Fake is an in-memory index.Collection. Distances are scripted:
// SetDistance pins a per-document distance, and DefaultDistance applies to
// everything else. The zero default of 1.0 means "similarity 0".
type Fake struct {
	mu sync.Mutex

	docs      map[string]index.Document
	order     []string
	distances map[string]float64

	// DefaultDistance is returned from Query for documents without an
	// explicit SetDistance entry.
	DefaultDistance float64

	queryErr error
}

var _ index.Collection = (*Fake)(nil)

// NewFake returns an empty fake collection.
func NewFake() *Fake {
	return &Fake{
		docs:            make(map[string]index.Document),
		distances:       make(map[string]float64),
		DefaultDistance: 1.0,
	}
}

// SetDistance pins the distance Query reports for the document with id.
func (f *Fake) SetDistance(id string, d float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.distances[id] = d
}

// FailQueries makes every subsequent Query return err.
func (f *Fake) FailQueries(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryErr = err
}

// Upsert implements index.Collection.
func (f *Fake) Upsert(_ context.Context, docs ...index.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range docs {
		if _, exists := f.docs[doc.ID]; !exists {
			f.order = append(f.order, doc.ID)
		}
		stored := doc
		stored.Metadata = maps.Clone(doc.Metadata)
		f.docs[doc.ID] = stored
	}
	return nil
}

// Get implements index.Collection.
func (f *Fake) Get(_ context.Context, ids ...string) ([]index.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(ids) == 0 {
		ids = f.order
	}
	var out []index.Document
	for _, id := range ids {
		if doc, ok := f.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Query implements index.Collection. Results are ordered by scripted
// distance ascending, insertion order breaking ties.
func (f *Fake) Query(_ context.Context, _ string, n int) ([]index.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	matches := make([]index.Match, 0, len(f.order))
	for _, id := range f.order {
		d, ok := f.distances[id]
		if !ok {
			d = f.DefaultDistance
		}
		matches = append(matches, index.Match{Document: f.docs[id], Distance: d})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if n >= 0 && len(matches) > n {
		matches = matches[:n]
	}
	return matches, nil
}

// Delete implements index.Collection.
func (f *Fake) Delete(_ context.Context, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if _, ok := f.docs[id]; !ok {
			continue
		}
		delete(f.docs, id)
		for i, ordered := range f.order {
			if ordered == id {
				f.order = append(f.order[:i], f.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Count implements index.Collection.
func (f *Fake) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs), nil
}

// Drop implements index.Collection.
func (f *Fake) Drop(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = make(map[string]index.Document)
	f.order = nil
	return nil
}

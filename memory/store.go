/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/memalign/index"
)

const (
	similarityNeighbors = 5

	metaCreatedAt        = "created_at"
	metaSourceExampleIDs = "source_example_ids"
	metaInputText        = "input_text"
	metaExpertFeedback   = "expert_feedback"
	metaExpertScore      = "expert_score"
	metaJudgeOutput      = "judge_output"
	metaJudgeScore       = "judge_score"
)

// Store owns one judge's memory: a principle collection (semantic) and an
// example collection (episodic).
type Store struct {
	principles index.Collection
	examples   index.Collection
}

// NewStore wraps the two collections backing a judge's memory.
func NewStore(principles, examples index.Collection) *Store {
	return &Store{principles: principles, examples: examples}
}

// AddPrinciple upserts a principle by id. Adding the same id twice keeps a
// single record carrying the latest text. Deduplication is the caller's
// responsibility.
func (s *Store) AddPrinciple(ctx context.Context, p Principle) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return s.principles.Upsert(ctx, index.Document{
		ID:       p.ID,
		Text:     p.Text,
		Metadata: principleMetadata(p),
	})
}

// GetAllPrinciples returns every stored principle. Ordering is unspecified.
func (s *Store) GetAllPrinciples(ctx context.Context) ([]Principle, error) {
	docs, err := s.principles.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing principles: %w", err)
	}
	principles := make([]Principle, 0, len(docs))
	for _, d := range docs {
		principles = append(principles, principleFromDocument(d))
	}
	return principles, nil
}

// FindSimilarPrinciples queries up to 5 nearest neighbors to text and
// returns those with similarity >= threshold (inclusive), nearest first.
// An empty collection yields an empty slice, not an error.
func (s *Store) FindSimilarPrinciples(ctx context.Context, text string, threshold float64) ([]SimilarPrinciple, error) {
	n, err := s.principles.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting principles: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	matches, err := s.principles.Query(ctx, text, similarityNeighbors)
	if err != nil {
		return nil, fmt.Errorf("querying principles: %w", err)
	}
	var similar []SimilarPrinciple
	for _, m := range matches {
		sim := 1 - m.Distance
		if sim < threshold {
			continue
		}
		similar = append(similar, SimilarPrinciple{
			Principle:  principleFromDocument(m.Document),
			Similarity: sim,
		})
	}
	return similar, nil
}

// DeletePrinciple removes a principle by id. It reports whether the
// principle existed; absence is not an error.
func (s *Store) DeletePrinciple(ctx context.Context, id string) (bool, error) {
	docs, err := s.principles.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("looking up principle: %w", err)
	}
	if len(docs) == 0 {
		return false, nil
	}
	if err := s.principles.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("deleting principle: %w", err)
	}
	return true, nil
}

// UpdatePrinciple replaces a principle's text, preserving its id,
// provenance, and creation time. It returns nil without error when the
// principle is absent.
func (s *Store) UpdatePrinciple(ctx context.Context, id, newText string) (*Principle, error) {
	if newText == "" {
		return nil, fmt.Errorf("principle text cannot be empty")
	}
	docs, err := s.principles.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("looking up principle: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	p := principleFromDocument(docs[0])
	p.Text = newText
	if err := s.principles.Upsert(ctx, index.Document{
		ID:       p.ID,
		Text:     p.Text,
		Metadata: principleMetadata(p),
	}); err != nil {
		return nil, fmt.Errorf("updating principle: %w", err)
	}
	return &p, nil
}

// AddExample records one feedback event in episodic memory.
func (s *Store) AddExample(ctx context.Context, e Example) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return s.examples.Upsert(ctx, index.Document{
		ID:       e.ID,
		Text:     e.EmbeddedText(),
		Metadata: exampleMetadata(e),
	})
}

// RetrieveExamples returns up to k examples nearest to query, most similar
// first. An empty collection yields an empty slice.
func (s *Store) RetrieveExamples(ctx context.Context, query string, k int) ([]Example, error) {
	n, err := s.examples.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting examples: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	matches, err := s.examples.Query(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("querying examples: %w", err)
	}
	examples := make([]Example, 0, len(matches))
	for _, m := range matches {
		examples = append(examples, exampleFromDocument(m.Document))
	}
	return examples, nil
}

// GetAllExamples lists stored examples, up to limit (0 means the default
// cap of 100). Ordering is unspecified.
func (s *Store) GetAllExamples(ctx context.Context, limit int) ([]Example, error) {
	if limit <= 0 {
		limit = 100
	}
	docs, err := s.examples.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing examples: %w", err)
	}
	if len(docs) > limit {
		docs = docs[:limit]
	}
	examples := make([]Example, 0, len(docs))
	for _, d := range docs {
		examples = append(examples, exampleFromDocument(d))
	}
	return examples, nil
}

// DeleteExample removes an example by id, reporting whether it existed.
func (s *Store) DeleteExample(ctx context.Context, id string) (bool, error) {
	docs, err := s.examples.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("looking up example: %w", err)
	}
	if len(docs) == 0 {
		return false, nil
	}
	if err := s.examples.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("deleting example: %w", err)
	}
	return true, nil
}

// Stats reports counts and age bounds for both collections. Timestamps are
// nil when a collection is empty.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	log := clog.FromContext(ctx)
	var st Stats

	pdocs, err := s.principles.Get(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("listing principles: %w", err)
	}
	st.PrincipleCount = len(pdocs)
	st.OldestPrinciple, st.NewestPrinciple = timestampBounds(log, pdocs)

	edocs, err := s.examples.Get(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("listing examples: %w", err)
	}
	st.ExampleCount = len(edocs)
	st.OldestExample, st.NewestExample = timestampBounds(log, edocs)

	return st, nil
}

// DeleteAll irreversibly drops both collections. Used on judge deletion.
func (s *Store) DeleteAll(ctx context.Context) error {
	if err := s.principles.Drop(ctx); err != nil {
		return fmt.Errorf("dropping principle collection: %w", err)
	}
	if err := s.examples.Drop(ctx); err != nil {
		return fmt.Errorf("dropping example collection: %w", err)
	}
	return nil
}

func principleMetadata(p Principle) map[string]string {
	md := map[string]string{
		metaCreatedAt: p.CreatedAt.Format(time.RFC3339Nano),
	}
	if len(p.SourceExampleIDs) > 0 {
		md[metaSourceExampleIDs] = strings.Join(p.SourceExampleIDs, ",")
	}
	return md
}

func principleFromDocument(d index.Document) Principle {
	p := Principle{
		ID:        d.ID,
		Text:      d.Text,
		CreatedAt: parseTimestamp(d.Metadata[metaCreatedAt]),
	}
	if ids := d.Metadata[metaSourceExampleIDs]; ids != "" {
		p.SourceExampleIDs = strings.Split(ids, ",")
	}
	return p
}

func exampleMetadata(e Example) map[string]string {
	md := map[string]string{
		metaInputText:      e.InputText,
		metaExpertFeedback: e.ExpertFeedback,
		metaCreatedAt:      e.CreatedAt.Format(time.RFC3339Nano),
	}
	if e.ExpertScore != nil {
		md[metaExpertScore] = strconv.Itoa(*e.ExpertScore)
	}
	if e.JudgeOutput != nil {
		md[metaJudgeOutput] = *e.JudgeOutput
	}
	if e.JudgeScore != nil {
		md[metaJudgeScore] = strconv.Itoa(*e.JudgeScore)
	}
	return md
}

func exampleFromDocument(d index.Document) Example {
	e := Example{
		ID:             d.ID,
		InputText:      d.Metadata[metaInputText],
		ExpertFeedback: d.Metadata[metaExpertFeedback],
		CreatedAt:      parseTimestamp(d.Metadata[metaCreatedAt]),
	}
	if raw, ok := d.Metadata[metaExpertScore]; ok {
		if v, err := strconv.Atoi(raw); err == nil {
			e.ExpertScore = &v
		}
	}
	if raw, ok := d.Metadata[metaJudgeOutput]; ok {
		e.JudgeOutput = &raw
	}
	if raw, ok := d.Metadata[metaJudgeScore]; ok {
		if v, err := strconv.Atoi(raw); err == nil {
			e.JudgeScore = &v
		}
	}
	return e
}

func parseTimestamp(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func timestampBounds(log *clog.Logger, docs []index.Document) (oldest, newest *time.Time) {
	for _, d := range docs {
		t := parseTimestamp(d.Metadata[metaCreatedAt])
		if t.IsZero() {
			log.With("id", d.ID).Warn("document has no parsable created_at timestamp")
			continue
		}
		if oldest == nil || t.Before(*oldest) {
			ts := t
			oldest = &ts
		}
		if newest == nil || t.After(*newest) {
			ts := t
			newest = &ts
		}
	}
	return oldest, newest
}

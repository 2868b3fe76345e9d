/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package memory implements the dual-store judge memory: a semantic
// collection of generalized principles and an episodic collection of past
// feedback examples, both backed by a similarity index.
package memory

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Principle is a generalized evaluation rule derived from expert feedback.
// Principles are immutable except for explicit text replacement, which
// preserves identity and provenance.
type Principle struct {
	ID               string    `json:"id"`
	Text             string    `json:"text"`
	SourceExampleIDs []string  `json:"source_example_ids,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Validate checks the principle's required fields.
func (p Principle) Validate() error {
	if p.ID == "" {
		return errors.New("principle id cannot be empty")
	}
	if p.Text == "" {
		return errors.New("principle text cannot be empty")
	}
	return nil
}

// Example is one recorded feedback event. Optional fields are pointers so
// "absent" is distinguishable from zero values.
type Example struct {
	ID             string    `json:"id"`
	InputText      string    `json:"input_text"`
	ExpertFeedback string    `json:"expert_feedback"`
	ExpertScore    *int      `json:"expert_score,omitempty"`
	JudgeOutput    *string   `json:"judge_output,omitempty"`
	JudgeScore     *int      `json:"judge_score,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Validate checks the example's required fields.
func (e Example) Validate() error {
	if e.ID == "" {
		return errors.New("example id cannot be empty")
	}
	if e.ExpertFeedback == "" {
		return errors.New("expert feedback cannot be empty")
	}
	return nil
}

// EmbeddedText is the representation indexed for retrieval: input and
// feedback joined by a newline, so lookups match similar situations as
// well as similar feedback.
func (e Example) EmbeddedText() string {
	return e.InputText + "\n" + e.ExpertFeedback
}

// SimilarPrinciple pairs a stored principle with its similarity to a query
// (1 minus cosine distance).
type SimilarPrinciple struct {
	Principle  Principle
	Similarity float64
}

// Stats summarizes both collections. Timestamps are nil when the
// corresponding collection is empty.
type Stats struct {
	PrincipleCount  int        `json:"principle_count"`
	ExampleCount    int        `json:"example_count"`
	OldestPrinciple *time.Time `json:"oldest_principle,omitempty"`
	NewestPrinciple *time.Time `json:"newest_principle,omitempty"`
	OldestExample   *time.Time `json:"oldest_example,omitempty"`
	NewestExample   *time.Time `json:"newest_example,omitempty"`
}

// NewID returns a fresh short identifier for principles and examples.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package alignment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/memalign/llmcaller"
	"chainguard.dev/memalign/memory"
	"chainguard.dev/memalign/result"
)

// Engine runs the alignment pipeline for one judge's memory store.
type Engine struct {
	store     *memory.Store
	caller    llmcaller.Caller
	model     string
	threshold float64
}

// NewEngine constructs an alignment engine. The threshold is the cosine
// similarity above which a candidate principle goes to the stage-2
// duplicate check.
func NewEngine(store *memory.Store, caller llmcaller.Caller, model string, threshold float64) *Engine {
	return &Engine{
		store:     store,
		caller:    caller,
		model:     model,
		threshold: threshold,
	}
}

// Align records one feedback event and grows the judge's semantic memory
// from it.
//
// The example is persisted first and unconditionally: episodic memory
// records history faithfully even when extraction fails or yields nothing.
// Extraction parse failures are swallowed (zero candidates); transport and
// index failures propagate.
func (e *Engine) Align(ctx context.Context, criterion string, fb Feedback) (*Result, error) {
	log := clog.FromContext(ctx)
	if err := fb.Validate(); err != nil {
		return nil, err
	}

	example := memory.Example{
		ID:             memory.NewID(),
		InputText:      fb.InputText,
		ExpertFeedback: fb.ExpertFeedback,
		ExpertScore:    fb.ExpertScore,
		JudgeOutput:    fb.JudgeOutput,
		JudgeScore:     fb.JudgeScore,
	}
	if err := e.store.AddExample(ctx, example); err != nil {
		return nil, fmt.Errorf("storing example: %w", err)
	}

	existing, err := e.store.GetAllPrinciples(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading principles: %w", err)
	}
	existingTexts := make([]string, 0, len(existing))
	for _, p := range existing {
		existingTexts = append(existingTexts, p.Text)
	}

	candidates, err := e.extract(ctx, criterion, existingTexts, fb)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ExampleID:           example.ID,
		PrinciplesExtracted: []string{},
	}
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		dup, err := e.isDuplicate(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if dup {
			res.DuplicatesFiltered++
			continue
		}
		p := memory.Principle{
			ID:               memory.NewID(),
			Text:             candidate,
			SourceExampleIDs: []string{example.ID},
		}
		// Persisting before the next candidate's similarity query means
		// later candidates in this batch see the admitted text, so two
		// near-identical candidates from one feedback event cannot both
		// land.
		if err := e.store.AddPrinciple(ctx, p); err != nil {
			return nil, fmt.Errorf("storing principle: %w", err)
		}
		res.PrinciplesExtracted = append(res.PrinciplesExtracted, candidate)
	}

	stats, err := e.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading store stats: %w", err)
	}
	res.TotalPrinciples = stats.PrincipleCount
	res.TotalExamples = stats.ExampleCount

	log.With("example", example.ID,
		"extracted", len(res.PrinciplesExtracted),
		"duplicates", res.DuplicatesFiltered).Info("alignment complete")
	return res, nil
}

// extract asks the model for candidate principles. A response that cannot
// be decoded yields zero candidates, not an error.
func (e *Engine) extract(ctx context.Context, criterion string, existing []string, fb Feedback) ([]string, error) {
	system, err := buildExtractionPrompt(criterion, existing, fb)
	if err != nil {
		return nil, fmt.Errorf("building extraction prompt: %w", err)
	}

	resp, err := llmcaller.JSON[extractionResponse](ctx, e.caller, llmcaller.Request{
		System: system,
		User:   "Extract principles from the feedback above.",
		Model:  e.model,
	})
	var parseErr *result.ParseError
	if errors.As(err, &parseErr) {
		clog.FromContext(ctx).Warnf("principle extraction response unparsable, keeping example only: %v", parseErr)
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("principle extraction call: %w", err)
	}
	return resp.Principles, nil
}

// isDuplicate runs the two-stage duplicate test. Stage 1 is an embedding
// similarity query; stage 2 asks the model for a binary verdict over every
// qualifying neighbor in one call. A stage-2 failure is treated as unique
// (fail-open) and logged.
func (e *Engine) isDuplicate(ctx context.Context, candidate string) (bool, error) {
	similar, err := e.store.FindSimilarPrinciples(ctx, candidate, e.threshold)
	if err != nil {
		return false, fmt.Errorf("similarity query: %w", err)
	}
	if len(similar) == 0 {
		return false, nil
	}

	neighbors := make([]string, 0, len(similar))
	for _, s := range similar {
		neighbors = append(neighbors, s.Principle.Text)
	}
	system, err := buildDuplicatePrompt(candidate, neighbors)
	if err != nil {
		return false, fmt.Errorf("building duplicate prompt: %w", err)
	}

	verdict, err := e.caller.Call(ctx, llmcaller.Request{
		System:    system,
		User:      "Is the candidate a duplicate?",
		Model:     e.model,
		MaxTokens: 16,
	})
	if err != nil {
		clog.FromContext(ctx).Warnf("duplicate check failed, treating candidate as unique: %v", err)
		return false, nil
	}
	return strings.EqualFold(strings.TrimSpace(verdict), "duplicate"), nil
}

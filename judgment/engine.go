/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package judgment scores input text against a judge's criterion, using
// the judge's accumulated memory as working context: every stored
// principle plus the top-k most similar past examples.
package judgment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/memalign/llmcaller"
	"chainguard.dev/memalign/memory"
	"chainguard.dev/memalign/registry"
)

// ErrMissingScore is returned when the model's judgment response carries
// no usable score. There is no default score; the call fails outright.
var ErrMissingScore = errors.New("judgment response missing score")

// Result is one completed judgment.
type Result struct {
	// Score is the final, bounds-clamped score.
	Score int `json:"score"`
	// Reasoning is the model's explanation. Empty when the model omitted it.
	Reasoning string `json:"reasoning"`
	// JudgeName identifies the judge that produced this result.
	JudgeName string `json:"judge_name"`
	// PrinciplesUsed and ExamplesRetrieved are diagnostic counts of the
	// memory that went into the prompt.
	PrinciplesUsed    int `json:"principles_used"`
	ExamplesRetrieved int `json:"examples_retrieved"`
}

// Engine runs the judgment pipeline for one judge's memory store.
type Engine struct {
	store      *memory.Store
	caller     llmcaller.Caller
	model      string
	retrievalK int
}

// NewEngine constructs a judgment engine. retrievalK is how many episodic
// examples are retrieved per call.
func NewEngine(store *memory.Store, caller llmcaller.Caller, model string, retrievalK int) *Engine {
	return &Engine{
		store:      store,
		caller:     caller,
		model:      model,
		retrievalK: retrievalK,
	}
}

// Judge scores inputText for the given judge. contextText is optional
// caller background included in the user prompt. Either a fully valid
// result comes back or an error; there is no partial judgment.
func (e *Engine) Judge(ctx context.Context, cfg registry.JudgeConfig, inputText, contextText string) (*Result, error) {
	log := clog.FromContext(ctx).With("judge", cfg.Name)

	principles, err := e.store.GetAllPrinciples(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading principles: %w", err)
	}
	examples, err := e.store.RetrieveExamples(ctx, inputText, e.retrievalK)
	if err != nil {
		return nil, fmt.Errorf("retrieving examples: %w", err)
	}

	system, err := buildSystemPrompt(cfg, principles, examples)
	if err != nil {
		return nil, fmt.Errorf("building judgment prompt: %w", err)
	}
	user, err := buildUserPrompt(inputText, contextText)
	if err != nil {
		return nil, fmt.Errorf("building user prompt: %w", err)
	}

	resp, err := llmcaller.JSON[judgeResponse](ctx, e.caller, llmcaller.Request{
		System: system,
		User:   user,
		Model:  e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("judgment call: %w", err)
	}

	score, ok := coerceScore(resp.Score)
	if !ok {
		return nil, ErrMissingScore
	}
	if !cfg.ScoreRange.Contains(score) {
		clamped := cfg.ScoreRange.Clamp(score)
		log.With("reported", score, "clamped", clamped,
			"min", cfg.ScoreRange.Min, "max", cfg.ScoreRange.Max).
			Warn("model score outside bounds, clamping")
		score = clamped
	}

	return &Result{
		Score:             score,
		Reasoning:         resp.Reasoning,
		JudgeName:         cfg.Name,
		PrinciplesUsed:    len(principles),
		ExamplesRetrieved: len(examples),
	}, nil
}

// coerceScore accepts the integer-convertible shapes models actually
// produce: JSON numbers (decoded as float64), quoted numbers, and
// json.Number. Anything else, including absence, is a missing score.
func coerceScore(v any) (int, bool) {
	switch s := v.(type) {
	case float64:
		return int(s), true
	case json.Number:
		if f, err := s.Float64(); err == nil {
			return int(f), true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

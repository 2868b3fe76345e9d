/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package embed provides embedding clients for the similarity index.
package embed

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"chainguard.dev/memalign/index"
)

// OpenAI implements index.Embedder using the OpenAI embeddings API.
type OpenAI struct {
	client     openai.Client
	model      string
	dimensions int
}

var _ index.Embedder = (*OpenAI)(nil)

// NewOpenAI creates an embedder for the given model. A positive dimensions
// value requests truncated embeddings (supported by text-embedding-3
// models); zero uses the model's native dimensionality.
func NewOpenAI(apiKey, model string, dimensions int) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("api key cannot be empty")
	}
	if model == "" {
		return nil, errors.New("model cannot be empty")
	}
	return &OpenAI{
		client:     openai.NewClient(option.WithAPIKey(apiKey)),
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed implements index.Embedder.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model: openai.EmbeddingModel(o.model),
	}
	if o.dimensions > 0 {
		params.Dimensions = openai.Int(int64(o.dimensions))
	}

	resp, err := o.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("embedding call failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding returned")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

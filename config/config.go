/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package config loads MemAlign configuration from the environment.
package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config holds the process-wide MemAlign configuration.
// Values are read from the environment once at startup and passed
// by reference into the engines; nothing here is mutated afterwards.
type Config struct {
	// AnthropicAPIKey authenticates the language model caller.
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY,required"`

	// OpenAIAPIKey authenticates the embedding client.
	OpenAIAPIKey string `env:"OPENAI_API_KEY,required"`

	// DatabaseURL is the PostgreSQL connection string for the similarity index.
	DatabaseURL string `env:"MEMALIGN_DATABASE_URL,required"`

	// RegistryDir is the directory holding judge configurations.
	RegistryDir string `env:"MEMALIGN_REGISTRY_DIR,default=.memalign"`

	// RetrievalK is the number of episodic examples retrieved per judgment.
	RetrievalK int `env:"MEMALIGN_RETRIEVAL_K,default=5"`

	// SimilarityThreshold is the cosine similarity above which a candidate
	// principle is escalated to the stage-2 duplicate check.
	SimilarityThreshold float64 `env:"MEMALIGN_SIMILARITY_THRESHOLD,default=0.90"`

	// ExtractionModel is the model used for principle extraction and
	// duplicate confirmation. Cheap and fast beats smart here.
	ExtractionModel string `env:"MEMALIGN_EXTRACTION_MODEL,default=claude-haiku-4-5-20251001"`

	// JudgmentModel is the model used for scoring inputs.
	JudgmentModel string `env:"MEMALIGN_JUDGMENT_MODEL,default=claude-sonnet-4-5-20250929"`

	// EmbeddingModel is the embedding model identifier. Opaque to the core;
	// it only affects the similarity index.
	EmbeddingModel string `env:"MEMALIGN_EMBEDDING_MODEL,default=text-embedding-3-small"`

	// EmbeddingDimensions is the dimensionality of stored vectors.
	EmbeddingDimensions int `env:"MEMALIGN_EMBEDDING_DIMENSIONS,default=1536"`
}

// Load processes the environment into a validated Config.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that envconfig tags cannot express.
func (c *Config) Validate() error {
	if c.RetrievalK <= 0 {
		return fmt.Errorf("retrieval k must be positive, got %d", c.RetrievalK)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in (0, 1], got %g", c.SimilarityThreshold)
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.EmbeddingDimensions)
	}
	if c.RegistryDir == "" {
		return errors.New("registry dir cannot be empty")
	}
	return nil
}

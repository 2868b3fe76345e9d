/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		AnthropicAPIKey:     "sk-ant-test",
		OpenAIAPIKey:        "sk-test",
		DatabaseURL:         "postgres://localhost:5432/memalign",
		RegistryDir:         ".memalign",
		RetrievalK:          5,
		SimilarityThreshold: 0.90,
		ExtractionModel:     "claude-haiku-4-5-20251001",
		JudgmentModel:       "claude-sonnet-4-5-20250929",
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 1536,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{{
		name:   "valid",
		mutate: func(*Config) {},
	}, {
		name:    "zero retrieval k",
		mutate:  func(c *Config) { c.RetrievalK = 0 },
		wantErr: "retrieval k",
	}, {
		name:    "negative retrieval k",
		mutate:  func(c *Config) { c.RetrievalK = -1 },
		wantErr: "retrieval k",
	}, {
		name:    "zero threshold",
		mutate:  func(c *Config) { c.SimilarityThreshold = 0 },
		wantErr: "similarity threshold",
	}, {
		name:    "threshold above one",
		mutate:  func(c *Config) { c.SimilarityThreshold = 1.01 },
		wantErr: "similarity threshold",
	}, {
		name:   "threshold exactly one",
		mutate: func(c *Config) { c.SimilarityThreshold = 1.0 },
	}, {
		name:    "zero dimensions",
		mutate:  func(c *Config) { c.EmbeddingDimensions = 0 },
		wantErr: "embedding dimensions",
	}, {
		name:    "empty registry dir",
		mutate:  func(c *Config) { c.RegistryDir = "" },
		wantErr: "registry dir",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MEMALIGN_DATABASE_URL", "postgres://localhost:5432/memalign")
	t.Setenv("MEMALIGN_SIMILARITY_THRESHOLD", "0.85")

	cfg, err := Load(t.Context())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SimilarityThreshold != 0.85 {
		t.Errorf("SimilarityThreshold = %g, want 0.85", cfg.SimilarityThreshold)
	}
	if cfg.RetrievalK != 5 {
		t.Errorf("RetrievalK default = %d, want 5", cfg.RetrievalK)
	}
	if cfg.ExtractionModel == "" || cfg.JudgmentModel == "" {
		t.Error("model defaults should be populated")
	}
}

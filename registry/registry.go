/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package registry persists judge configurations on disk.
//
// Each judge gets its own directory under the registry root, holding a
// single config.json. Judge names double as filesystem path segments and
// as similarity-index collection prefixes, so they are restricted to
// lowercase alphanumerics and interior hyphens.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/chainguard-dev/clog"
)

var (
	// ErrNotFound is returned when no judge with the given name exists.
	ErrNotFound = errors.New("judge not found")

	// ErrExists is returned when creating a judge whose name is taken.
	ErrExists = errors.New("judge already exists")
)

var nameRE = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// ValidateName checks that a judge name is usable as a path segment and
// collection prefix.
func ValidateName(name string) error {
	if !nameRE.MatchString(name) {
		return fmt.Errorf("invalid judge name %q: must be lowercase alphanumeric with interior hyphens", name)
	}
	return nil
}

// ScoreRange bounds the scores a judge may emit.
type ScoreRange struct {
	Min int `json:"min_score"`
	Max int `json:"max_score"`
}

// Validate checks that the range is non-degenerate.
func (r ScoreRange) Validate() error {
	if r.Max <= r.Min {
		return fmt.Errorf("score range max (%d) must be greater than min (%d)", r.Max, r.Min)
	}
	return nil
}

// Clamp snaps a score into the range.
func (r ScoreRange) Clamp(score int) int {
	if score < r.Min {
		return r.Min
	}
	if score > r.Max {
		return r.Max
	}
	return score
}

// Contains reports whether score falls within the range, inclusive.
func (r ScoreRange) Contains(score int) bool {
	return score >= r.Min && score <= r.Max
}

// JudgeConfig describes a registered judge.
type JudgeConfig struct {
	Name         string     `json:"name"`
	Criterion    string     `json:"criterion"`
	Instructions string     `json:"instructions,omitempty"`
	ScoreRange   ScoreRange `json:"score_range"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Validate checks all fields of the config.
func (c JudgeConfig) Validate() error {
	if err := ValidateName(c.Name); err != nil {
		return err
	}
	if c.Criterion == "" {
		return errors.New("criterion cannot be empty")
	}
	return c.ScoreRange.Validate()
}

// Registry stores judge configs under a root directory.
type Registry struct {
	dir string
}

// New returns a registry rooted at dir. The directory is created lazily by
// Create.
func New(dir string) *Registry {
	return &Registry{dir: dir}
}

func (r *Registry) configPath(name string) string {
	return filepath.Join(r.dir, name, "config.json")
}

// Create registers a new judge. It returns ErrExists if the name is taken.
func (r *Registry) Create(ctx context.Context, cfg JudgeConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now().UTC()
	}

	path := r.configPath(cfg.Name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, cfg.Name)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking for existing judge: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating judge directory: %w", err)
	}
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	clog.FromContext(ctx).With("judge", cfg.Name).Info("registered judge")
	return nil
}

// Get loads a judge config. It returns ErrNotFound if the judge does not
// exist.
func (r *Registry) Get(ctx context.Context, name string) (JudgeConfig, error) {
	if err := ValidateName(name); err != nil {
		return JudgeConfig{}, err
	}
	raw, err := os.ReadFile(r.configPath(name))
	if os.IsNotExist(err) {
		return JudgeConfig{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	} else if err != nil {
		return JudgeConfig{}, fmt.Errorf("reading config: %w", err)
	}
	var cfg JudgeConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return JudgeConfig{}, fmt.Errorf("parsing config for %q: %w", name, err)
	}
	return cfg, nil
}

// Exists reports whether a judge with the given name is registered.
func (r *Registry) Exists(ctx context.Context, name string) (bool, error) {
	_, err := r.Get(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

// List returns all registered judges sorted by name. Directories with
// missing or corrupt configs are skipped with a warning.
func (r *Registry) List(ctx context.Context) ([]JudgeConfig, error) {
	log := clog.FromContext(ctx)
	entries, err := os.ReadDir(r.dir)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("reading registry directory: %w", err)
	}

	var configs []JudgeConfig
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		cfg, err := r.Get(ctx, e.Name())
		if err != nil {
			log.With("judge", e.Name()).Warnf("skipping unreadable judge config: %v", err)
			continue
		}
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs, nil
}

// Delete removes a judge's registry entry. It returns ErrNotFound if the
// judge does not exist.
func (r *Registry) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	dir := filepath.Join(r.dir, name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	} else if err != nil {
		return fmt.Errorf("checking judge directory: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing judge directory: %w", err)
	}
	clog.FromContext(ctx).With("judge", name).Info("deleted judge")
	return nil
}

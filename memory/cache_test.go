/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package memory

import (
	"errors"
	"testing"

	"chainguard.dev/memalign/index/indextest"
)

func TestCacheReturnsSameStore(t *testing.T) {
	var built int
	cache := NewCache(func(judge string) (*Store, error) {
		built++
		return NewStore(indextest.NewFake(), indextest.NewFake()), nil
	})

	a, err := cache.Get("safety")
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	b, err := cache.Get("safety")
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if a != b {
		t.Error("same judge returned distinct stores")
	}
	if built != 1 {
		t.Errorf("factory called %d times, want 1", built)
	}

	c, err := cache.Get("code-quality")
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if c == a {
		t.Error("distinct judges share a store")
	}
	if built != 2 {
		t.Errorf("factory called %d times, want 2", built)
	}
}

func TestCacheFactoryError(t *testing.T) {
	wantErr := errors.New("connection refused")
	cache := NewCache(func(judge string) (*Store, error) {
		return nil, wantErr
	})
	if _, err := cache.Get("safety"); !errors.Is(err, wantErr) {
		t.Errorf("Get() = %v, want %v", err, wantErr)
	}
}

func TestCacheForget(t *testing.T) {
	var built int
	cache := NewCache(func(judge string) (*Store, error) {
		built++
		return NewStore(indextest.NewFake(), indextest.NewFake()), nil
	})

	if _, err := cache.Get("safety"); err != nil {
		t.Fatal(err)
	}
	cache.Forget("safety")
	if _, err := cache.Get("safety"); err != nil {
		t.Fatal(err)
	}
	if built != 2 {
		t.Errorf("factory called %d times after Forget, want 2", built)
	}
}

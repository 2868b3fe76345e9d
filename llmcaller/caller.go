/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package llmcaller is the language model call layer: a Caller returns raw
// text for a system/user prompt pair, and JSON decodes that text into a
// typed value under the fence-tolerant parsing contract of the result
// package. Transport failures and parse failures stay distinguishable so
// pipelines can apply different policies to each.
package llmcaller

import (
	"context"

	"chainguard.dev/memalign/result"
)

// Request is a single model invocation.
type Request struct {
	// System is the system prompt.
	System string
	// User is the user prompt.
	User string
	// Model is the model identifier.
	Model string
	// MaxTokens caps the response length. Zero means the caller's default.
	MaxTokens int64
	// Temperature is the sampling temperature. The zero value (0.0) is
	// intentional: evaluation calls want determinism.
	Temperature float64
}

// Caller makes a language model call and returns the raw text response.
// Implementations must return transport errors unwrapped enough that
// callers can distinguish them from parse errors.
type Caller interface {
	Call(ctx context.Context, req Request) (string, error)
}

// JSON calls the model and decodes its response into T. A decode failure
// surfaces as a *result.ParseError; a transport failure is returned as-is.
func JSON[T any](ctx context.Context, c Caller, req Request) (T, error) {
	text, err := c.Call(ctx, req)
	if err != nil {
		var zero T
		return zero, err
	}
	return result.Extract[T](text)
}

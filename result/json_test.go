/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{{
		name: "fenced json block",
		input: "Here is the response:\n```json\n" +
			`{"key": "value"}` + "\n```",
		expected: `{"key": "value"}`,
	}, {
		name: "fenced block with text before and after",
		input: "Let me think about this.\n\n```json\n" +
			`{"score": 3}` + "\n```\n\nThat is my answer.",
		expected: `{"score": 3}`,
	}, {
		name: "multiline fenced block",
		input: "```json\n" + `{
  "principles": [
    {"text": "Prefer clarity over brevity"}
  ]
}` + "\n```",
		expected: `{
  "principles": [
    {"text": "Prefer clarity over brevity"}
  ]
}`,
	}, {
		name:     "generic fence without language tag",
		input:    "```\n{\"plain\": true}\n```",
		expected: `{"plain": true}`,
	}, {
		name:     "bare json",
		input:    `{"plain": "json"}`,
		expected: `{"plain": "json"}`,
	}, {
		name:     "bare json with whitespace",
		input:    "\n   {\"plain\": \"json\"}\n   ",
		expected: `{"plain": "json"}`,
	}, {
		name:     "empty fenced block",
		input:    "```json\n```",
		expected: "",
	}, {
		name:     "plain text untouched",
		input:    "not json at all",
		expected: "not json at all",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.input); got != tt.expected {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	type judgment struct {
		Score     int    `json:"score"`
		Reasoning string `json:"reasoning"`
	}

	tests := []struct {
		name    string
		input   string
		want    judgment
		wantErr bool
	}{{
		name:  "bare object",
		input: `{"score": 4, "reasoning": "solid"}`,
		want:  judgment{Score: 4, Reasoning: "solid"},
	}, {
		name:  "fenced object",
		input: "```json\n{\"score\": 2, \"reasoning\": \"weak\"}\n```",
		want:  judgment{Score: 2, Reasoning: "weak"},
	}, {
		name:  "object embedded in prose",
		input: `Sure! Here is my evaluation: {"score": 5, "reasoning": "excellent"} Hope that helps.`,
		want:  judgment{Score: 5, Reasoning: "excellent"},
	}, {
		name:    "no json at all",
		input:   "I cannot evaluate this.",
		wantErr: true,
	}, {
		name:    "malformed object",
		input:   `{"score": }`,
		wantErr: true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract[judgment](tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Extract() expected error, got nil")
				}
				var pe *ParseError
				if !errors.As(err, &pe) {
					t.Fatalf("Extract() error = %T, want *ParseError", err)
				}
				if pe.Raw == "" {
					t.Error("ParseError.Raw should carry a response prefix")
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrorTruncatesRaw(t *testing.T) {
	long := "garbage " + strings.Repeat("x", 2000)
	_, err := Extract[map[string]any](long)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Extract() error = %T, want *ParseError", err)
	}
	if len(pe.Raw) > 500 {
		t.Errorf("ParseError.Raw length = %d, want <= 500", len(pe.Raw))
	}
}

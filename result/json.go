/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package result decodes structured JSON out of raw language model output.
//
// Models frequently wrap JSON in markdown code fences or surround it with
// prose. ExtractJSON peels the fences off; Extract additionally unmarshals
// into a typed value, falling back to the outermost {...} substring before
// reporting a ParseError that carries a prefix of the raw text for
// diagnostics.
package result

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// rawPrefixLimit bounds how much raw model output a ParseError retains.
const rawPrefixLimit = 500

// ParseError reports that model output could not be decoded as the expected
// structure. It is distinct from transport errors: callers that want to
// swallow malformed output but propagate network failures match on this type.
type ParseError struct {
	// Raw is a prefix of the undecodable model output.
	Raw string
	// Err is the underlying decode error.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing model response: %v (response prefix: %q)", e.Err, e.Raw)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExtractJSON strips markdown code fences from a model response.
// It prefers a fenced ```json block on its own lines, then a whole-response
// fence with or without a language tag, and otherwise returns the trimmed
// input unchanged.
func ExtractJSON(responseText string) string {
	// A ```json block somewhere in the response takes priority, since models
	// often surround it with prose.
	if block, ok := fencedBlock(responseText); ok {
		return block
	}

	cleaned := strings.TrimSpace(responseText)
	if strings.HasPrefix(cleaned, "```") && strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimSuffix(cleaned, "```")
		// Drop the opening fence along with its optional language tag.
		if nl := strings.IndexByte(cleaned, '\n'); nl >= 0 {
			cleaned = cleaned[nl+1:]
		} else {
			cleaned = strings.TrimPrefix(cleaned, "```")
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}

// fencedBlock scans for the first ```json fence on its own line and collects
// content up to the closing ```.
func fencedBlock(responseText string) (string, bool) {
	var buf bytes.Buffer
	inBlock := false
	for line := range strings.Lines(responseText) {
		trimmed := strings.TrimRight(line, "\r\n")
		if !inBlock {
			if trimmed == "```json" {
				inBlock = true
			}
			continue
		}
		if trimmed == "```" {
			break
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(trimmed)
	}
	if !inBlock {
		return "", false
	}
	return strings.TrimSpace(buf.String()), true
}

// Extract decodes a model response into T.
//
// It first tries the fence-stripped response directly. If that fails it
// retries on the substring between the first '{' and the last '}', which
// rescues responses with leading or trailing prose. When both attempts fail
// it returns a *ParseError carrying a prefix of the raw response.
func Extract[T any](responseText string) (T, error) {
	var out T

	cleaned := ExtractJSON(responseText)
	directErr := json.Unmarshal([]byte(cleaned), &out)
	if directErr == nil {
		return out, nil
	}

	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start >= 0 && end > start {
		var retry T
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &retry); err == nil {
			return retry, nil
		}
	}

	raw := responseText
	if len(raw) > rawPrefixLimit {
		raw = raw[:rawPrefixLimit]
	}
	return out, &ParseError{Raw: raw, Err: directErr}
}

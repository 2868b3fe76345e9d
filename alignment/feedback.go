/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package alignment turns expert feedback into durable judge memory: every
// feedback event is recorded as an episodic example, and generalizable
// lessons are extracted as deduplicated principles.
package alignment

import "errors"

// Feedback is one expert feedback event submitted for alignment.
type Feedback struct {
	// InputText is the text the judge evaluated (or would evaluate).
	InputText string `json:"input_text"`
	// ExpertFeedback is the expert's assessment. Required.
	ExpertFeedback string `json:"expert_feedback"`
	// ExpertScore is the score the expert assigned, on the judge's scale.
	ExpertScore *int `json:"expert_score,omitempty"`
	// JudgeOutput is the judge's prior output for this input, if any.
	JudgeOutput *string `json:"judge_output,omitempty"`
	// JudgeScore is the score the judge previously assigned, if any.
	JudgeScore *int `json:"judge_score,omitempty"`
}

// Validate checks the feedback payload.
func (f Feedback) Validate() error {
	if f.ExpertFeedback == "" {
		return errors.New("expert_feedback cannot be empty")
	}
	return nil
}

// disagrees reports whether the expert and the judge both scored this input
// and landed on different scores.
func (f Feedback) disagrees() bool {
	return f.ExpertScore != nil && f.JudgeScore != nil && *f.ExpertScore != *f.JudgeScore
}

// Result summarizes one alignment call.
type Result struct {
	// ExampleID identifies the episodic record created for this feedback.
	ExampleID string `json:"example_id"`
	// PrinciplesExtracted lists the texts of newly admitted principles.
	PrinciplesExtracted []string `json:"principles_extracted"`
	// DuplicatesFiltered counts candidates rejected as duplicates.
	DuplicatesFiltered int `json:"duplicates_filtered"`
	// TotalPrinciples and TotalExamples are store totals after this call.
	TotalPrinciples int `json:"total_principles"`
	TotalExamples   int `json:"total_examples"`
}

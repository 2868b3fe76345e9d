/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judgment

import (
	"fmt"
	"strings"

	"chainguard.dev/memalign/memory"
	"chainguard.dev/memalign/promptbuilder"
	"chainguard.dev/memalign/registry"
)

// judgePrompt is the working-memory evaluation prompt: the judge's
// configuration plus whatever semantic and episodic memory applies. The
// principles and examples placeholders are whole sections so they can
// vanish entirely when memory is empty.
var judgePrompt = promptbuilder.MustNewPrompt(`<task>
You are an evaluation judge. Score the input against the criterion below.
</task>

{{criterion}}

{{instructions}}

<score_range>
Scores are integers from {{min_score}} to {{max_score}} inclusive.
</score_range>
{{principles}}{{examples}}
<output_format>
Return your judgment as a JSON object with this structure:
{
  "score": <integer>,
  "reasoning": "explanation of the score"
}
</output_format>

Respond with only the JSON object, no additional text.`)

// userPrompt carries the input under evaluation and optional caller
// context.
var userPrompt = promptbuilder.MustNewPrompt(`<input>
{{input_text}}
</input>
{{context}}`)

// judgeResponse is the JSON shape the judgment call must return. Score is
// decoded loosely so integer, float, and quoted forms all coerce.
type judgeResponse struct {
	Score     any    `json:"score"`
	Reasoning string `json:"reasoning"`
}

func buildSystemPrompt(cfg registry.JudgeConfig, principles []memory.Principle, examples []memory.Example) (string, error) {
	prompt, err := judgePrompt.BindXML("criterion", struct {
		XMLName struct{} `xml:"criterion"`
		Content string   `xml:",chardata"`
	}{
		Content: cfg.Criterion,
	})
	if err != nil {
		return "", err
	}

	if prompt, err = prompt.BindXML("instructions", struct {
		XMLName struct{} `xml:"instructions"`
		Content string   `xml:",chardata"`
	}{
		Content: cfg.Instructions,
	}); err != nil {
		return "", err
	}

	if prompt, err = prompt.BindString("min_score", fmt.Sprintf("%d", cfg.ScoreRange.Min)); err != nil {
		return "", err
	}
	if prompt, err = prompt.BindString("max_score", fmt.Sprintf("%d", cfg.ScoreRange.Max)); err != nil {
		return "", err
	}

	if prompt, err = prompt.BindString("principles", principlesSection(principles)); err != nil {
		return "", err
	}
	if prompt, err = prompt.BindString("examples", examplesSection(examples)); err != nil {
		return "", err
	}

	return prompt.Build()
}

// principlesSection renders the numbered principle list, or nothing at all
// when semantic memory is empty. An empty section header must never appear.
func principlesSection(principles []memory.Principle) string {
	if len(principles) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n<principles>\nApply these evaluation principles, learned from expert feedback:\n")
	for i, p := range principles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.Text)
	}
	b.WriteString("</principles>\n")
	return b.String()
}

// examplesSection renders retrieved calibration examples, or nothing when
// none were retrieved.
func examplesSection(examples []memory.Example) string {
	if len(examples) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n<examples>\nPast expert feedback on similar inputs, as calibration anchors:\n")
	for i, e := range examples {
		fmt.Fprintf(&b, "\nExample %d:\nInput: %s\nExpert feedback: %s\n", i+1, e.InputText, e.ExpertFeedback)
		if e.ExpertScore != nil {
			fmt.Fprintf(&b, "Expert score: %d\n", *e.ExpertScore)
		}
	}
	b.WriteString("</examples>\n")
	return b.String()
}

func buildUserPrompt(inputText, context string) (string, error) {
	prompt, err := userPrompt.BindString("input_text", inputText)
	if err != nil {
		return "", err
	}
	ctxSection := ""
	if context != "" {
		ctxSection = "\n<context>\n" + context + "\n</context>"
	}
	if prompt, err = prompt.BindString("context", ctxSection); err != nil {
		return "", err
	}
	return prompt.Build()
}

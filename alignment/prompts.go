/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package alignment

import (
	"fmt"
	"strings"

	"chainguard.dev/memalign/promptbuilder"
)

// extractionPrompt asks the model to distill general principles from one
// feedback event.
var extractionPrompt = promptbuilder.MustNewPrompt(`<task>
You maintain the evaluation policy of an LLM judge.
From one piece of expert feedback, extract ZERO OR MORE general evaluation principles.
</task>

{{criterion}}

<existing_principles>
The judge already follows these principles. Do NOT restate them.
{{existing_principles}}
</existing_principles>

{{feedback}}

<instructions>
1. A principle is a general, reusable evaluation rule that applies beyond this one case.
2. Do not restate or trivially rephrase an existing principle.
3. If the feedback carries no generalizable lesson, extract nothing.
{{disagreement_note}}
</instructions>

<output_format>
Return a JSON object with this structure:
{
  "principles": ["principle text", ...]
}

Return {"principles": []} when there is nothing to extract.
</output_format>

Respond with only the JSON object, no additional text.`)

// duplicatePrompt is the stage-2 authoritative duplicate check. The
// response contract is a single word.
var duplicatePrompt = promptbuilder.MustNewPrompt(`<task>
Decide whether a candidate evaluation principle duplicates any of the existing principles below.
</task>

{{candidate}}

{{existing}}

<instructions>
Two principles are duplicates when they express the same evaluation rule, even with different wording.
Principles that differ in scope, direction, or negation are NOT duplicates.
</instructions>

Respond with exactly one word: "duplicate" or "unique".`)

// extractionResponse is the JSON shape the extraction call must return.
type extractionResponse struct {
	Principles []string `json:"principles"`
}

func buildExtractionPrompt(criterion string, existing []string, fb Feedback) (string, error) {
	prompt, err := extractionPrompt.BindXML("criterion", struct {
		XMLName struct{} `xml:"criterion"`
		Content string   `xml:",chardata"`
	}{
		Content: criterion,
	})
	if err != nil {
		return "", err
	}

	if prompt, err = prompt.BindJSON("existing_principles", existing); err != nil {
		return "", err
	}

	if prompt, err = fb.Bind(prompt); err != nil {
		return "", err
	}

	return prompt.Build()
}

var _ promptbuilder.Bindable = Feedback{}

// Bind implements promptbuilder.Bindable: the feedback payload as XML plus
// a disagreement note when the expert and judge scores conflict.
func (f Feedback) Bind(prompt *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	prompt, err := prompt.BindXML("feedback", struct {
		XMLName        struct{} `xml:"feedback"`
		InputText      string   `xml:"input_text"`
		ExpertFeedback string   `xml:"expert_feedback"`
		ExpertScore    *int     `xml:"expert_score,omitempty"`
		JudgeOutput    *string  `xml:"judge_output,omitempty"`
		JudgeScore     *int     `xml:"judge_score,omitempty"`
	}{
		InputText:      f.InputText,
		ExpertFeedback: f.ExpertFeedback,
		ExpertScore:    f.ExpertScore,
		JudgeOutput:    f.JudgeOutput,
		JudgeScore:     f.JudgeScore,
	})
	if err != nil {
		return nil, err
	}

	note := ""
	if f.disagrees() {
		note = fmt.Sprintf("4. The expert scored this input %d but the judge scored it %d. Pay particular attention to what the judge is getting wrong.",
			*f.ExpertScore, *f.JudgeScore)
	}
	return prompt.BindString("disagreement_note", note)
}

func buildDuplicatePrompt(candidate string, neighbors []string) (string, error) {
	prompt, err := duplicatePrompt.BindXML("candidate", struct {
		XMLName struct{} `xml:"candidate"`
		Content string   `xml:",chardata"`
	}{
		Content: candidate,
	})
	if err != nil {
		return "", err
	}

	var numbered strings.Builder
	for i, n := range neighbors {
		fmt.Fprintf(&numbered, "%d. %s\n", i+1, n)
	}
	if prompt, err = prompt.BindXML("existing", struct {
		XMLName struct{} `xml:"existing"`
		Content string   `xml:",chardata"`
	}{
		Content: "\n" + numbered.String(),
	}); err != nil {
		return "", err
	}

	return prompt.Build()
}

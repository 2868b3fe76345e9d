/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

// Bindable is a type that can bind its values into a Prompt. Engines accept
// request types implementing this interface so prompt templates stay next to
// the code that owns them while data binding stays next to the data.
type Bindable interface {
	// Bind returns a new prompt with the receiver's values bound.
	Bind(prompt *Prompt) (*Prompt, error)
}

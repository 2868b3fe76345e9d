/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

// Helpers that panic on error, for package-level template variables that are
// known valid at compile time.

// Must panics if err is non-nil, otherwise returns p.
func Must(p *Prompt, err error) *Prompt {
	if err != nil {
		panic(err)
	}
	return p
}

// MustNewPrompt creates a new prompt from a template literal and panics on
// error. Sugar for Must(NewPrompt(...)).
func MustNewPrompt(template stringLiteral) *Prompt {
	return Must(NewPrompt(template))
}

// MustBindString binds a runtime string and panics on error.
func (p *Prompt) MustBindString(name, value string) *Prompt {
	return Must(p.BindString(name, value))
}

// MustBindXML binds structured data as XML and panics on error.
func (p *Prompt) MustBindXML(name string, data any) *Prompt {
	return Must(p.BindXML(name, data))
}

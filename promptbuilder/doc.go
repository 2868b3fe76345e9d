/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package promptbuilder assembles prompts from templates with typed bindings.

Templates use {{name}} placeholders. Each Bind* call returns a new Prompt,
so a package-level template can be bound differently per request:

	var extraction = promptbuilder.MustNewPrompt(`{{criterion}}

	{{feedback}}

	Extract generalizable evaluation principles from this feedback.`)

	p, err := extraction.BindXML("criterion", crit)
	...
	prompt, err := p.Build()

Build fails if any placeholder remains unbound, which turns a forgotten
binding into an immediate error instead of a malformed prompt.

Bindings come in four flavors: BindString substitutes a runtime string
verbatim (used for preformatted prompt sections), while BindXML, BindJSON,
and BindYAML marshal structured data. XML binding is the usual choice for
wrapping untrusted text in delimiting tags.

Request types implement Bindable so engines can bind a request to its
template without knowing the placeholder names.
*/
package promptbuilder

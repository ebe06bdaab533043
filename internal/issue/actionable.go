// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing error types for fatal packaging
// failures. An ActionableError names the operation that failed, the document
// or path involved, and concrete suggestions, so diagnostics read as
// instructions rather than stack traces.
package issue

import (
	"errors"
	"fmt"
	"strings"
)

// ActionableError is a fatal error with enough context to act on. The
// multi-cause errors of the pipeline (every bad header field, every
// collision group) arrive here already aggregated in Cause; this type only
// adds the operation framing and fix suggestions.
type ActionableError struct {
	// Operation is a verb phrase describing what failed, e.g.
	// "flatten file layout".
	Operation string

	// Resource is the document or path involved, when there is one.
	Resource string

	// Suggestions are concrete next steps for the user.
	Suggestions []string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface with the concise single-line form.
func (e *ActionableError) Error() string {
	var msg strings.Builder
	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)
	if e.Resource != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Resource)
	}
	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}
	return msg.String()
}

// Unwrap exposes the cause to errors.Is/As.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the error for terminal display. Suggestions are appended
// as bullet points; verbose mode additionally prints the unwrapped error
// chain.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder
	msg.WriteString(e.Error())

	for _, suggestion := range e.Suggestions {
		msg.WriteString("\n  • ")
		msg.WriteString(suggestion)
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		depth := 1
		for err := e.Cause; err != nil; err = errors.Unwrap(err) {
			fmt.Fprintf(&msg, "\n  %d. %s", depth, err.Error())
			depth++
		}
	}

	return msg.String()
}

// ErrorContext builds ActionableError values incrementally. Set the
// operation up front, attach the cause when it happens:
//
//	ctx := issue.NewErrorContext().
//		WithOperation("load skill document").
//		WithResource(docPath)
//	...
//	return ctx.WithSuggestion("Check the path").Wrap(err).BuildError()
type ErrorContext struct {
	operation   string
	resource    string
	suggestions []string
	cause       error
}

// NewErrorContext creates an empty builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// WithOperation sets the failing operation (required).
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.operation = op
	return c
}

// WithResource sets the document or path involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.resource = res
	return c
}

// WithSuggestion appends one fix suggestion.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.suggestions = append(c.suggestions, sug)
	return c
}

// Wrap attaches the underlying cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.cause = err
	return c
}

// Build creates the ActionableError. Returns nil if no operation was set.
func (c *ErrorContext) Build() *ActionableError {
	if c.operation == "" {
		return nil
	}
	return &ActionableError{
		Operation:   c.operation,
		Resource:    c.resource,
		Suggestions: c.suggestions,
		Cause:       c.cause,
	}
}

// BuildError is Build for direct use in return statements.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}

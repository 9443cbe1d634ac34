// Package tmpl lexes, parses, resolves and renders theme templates.
//
// Every failure returned by Render is one of the pointer error types below
// and can be matched with errors.As:
//
//	*LexError         source that cannot be tokenized
//	*ParseError       UnmatchedTag, UnknownTag, InvalidExpression, MisplacedTag, DuplicateBlock
//	*ResolutionError  CyclicExtends, TemplateNotFound, LoadFailed
//	*ExpressionError  UnknownFilter, TypeMismatch, DivisionByZero, FilterFailed
//	*IncludeError     MaxDepthExceeded
//	*DispatchError    a component or hook handler failed
//
// A switch that handles only the first five classes misses DispatchError
// and the MisplacedTag, DuplicateBlock, LoadFailed and FilterFailed kinds.
package tmpl

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTemplateNotFound is matched (via errors.Is) by every error a Loader
// returns for a name it does not know.
var ErrTemplateNotFound = errors.New("template not found")

// NotFoundError is the error loaders return for unknown template names.
type NotFoundError struct{ Name string }

func (e NotFoundError) Error() string { return "template not found: " + e.Name }

func (e NotFoundError) Is(target error) bool { return target == ErrTemplateNotFound }

// ParseErrorKind classifies a ParseError.
type ParseErrorKind string

const (
	UnmatchedTag      ParseErrorKind = "unmatched tag"
	UnknownTag        ParseErrorKind = "unknown tag"
	InvalidExpression ParseErrorKind = "invalid expression"
	MisplacedTag      ParseErrorKind = "misplaced tag"
	DuplicateBlock    ParseErrorKind = "duplicate block"
)

// ResolutionErrorKind classifies a ResolutionError.
type ResolutionErrorKind string

const (
	CyclicExtends    ResolutionErrorKind = "cyclic extends"
	TemplateNotFound ResolutionErrorKind = "template not found"
	LoadFailed       ResolutionErrorKind = "load failed"
)

// ExpressionErrorKind classifies an ExpressionError.
type ExpressionErrorKind string

const (
	UnknownFilter  ExpressionErrorKind = "unknown filter"
	TypeMismatch   ExpressionErrorKind = "type mismatch"
	DivisionByZero ExpressionErrorKind = "division by zero"
	FilterFailed   ExpressionErrorKind = "filter failed"
)

// IncludeErrorKind classifies an IncludeError.
type IncludeErrorKind string

const MaxDepthExceeded IncludeErrorKind = "max depth exceeded"

func location(template string, pos Pos) string {
	if template == "" {
		template = "<input>"
	}
	if pos.Line == 0 {
		return template
	}
	return fmt.Sprintf("%s:%s", template, pos)
}

// LexError reports source text the lexer could not tokenize.
type LexError struct {
	Template string
	Pos      Pos
	Reason   string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s: lex error: %s", location(e.Template, e.Pos), e.Reason)
}

// ParseError reports a syntactically invalid template.
type ParseError struct {
	Template string
	Pos      Pos
	Kind     ParseErrorKind
	Msg      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse error: %s: %s", location(e.Template, e.Pos), e.Kind, e.Msg)
}

// ResolutionError reports a failure while walking an extends chain or
// loading a template. Chain lists the template names visited, entry first.
type ResolutionError struct {
	Kind  ResolutionErrorKind
	Name  string
	Chain []string
	Err   error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("resolution error: %s: %q", e.Kind, e.Name)
	if len(e.Chain) > 1 {
		msg += " (chain " + strings.Join(e.Chain, " -> ") + ")"
	}
	if e.Err != nil && e.Kind == LoadFailed {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ExpressionError reports a failure evaluating an expression.
type ExpressionError struct {
	Template string
	Pos      Pos
	Kind     ExpressionErrorKind
	Msg      string
	Err      error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("%s: expression error: %s: %s", location(e.Template, e.Pos), e.Kind, e.Msg)
}

func (e *ExpressionError) Unwrap() error { return e.Err }

// IncludeError reports nested includes (or template-backed components)
// exceeding the configured depth.
type IncludeError struct {
	Kind  IncludeErrorKind
	Name  string
	Depth int
}

func (e *IncludeError) Error() string {
	return fmt.Sprintf("include error: %s: %q at depth %d", e.Kind, e.Name, e.Depth)
}

// DispatchError wraps a failure returned by the component/hook dispatcher.
type DispatchError struct {
	Kind CallKind
	Name string
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch error: %s %q: %v", e.Kind, e.Name, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// typeMismatch builds an ExpressionError without position. The evaluator
// attaches the position of the expression that triggered it.
func typeMismatch(format string, args ...any) *ExpressionError {
	return &ExpressionError{Kind: TypeMismatch, Msg: fmt.Sprintf(format, args...)}
}

// isEngineError reports whether err already belongs to the engine's error
// taxonomy and can be propagated unchanged.
func isEngineError(err error) bool {
	var (
		lexErr  *LexError
		parErr  *ParseError
		resErr  *ResolutionError
		exprErr *ExpressionError
		incErr  *IncludeError
		disErr  *DispatchError
	)
	return errors.As(err, &lexErr) || errors.As(err, &parErr) || errors.As(err, &resErr) ||
		errors.As(err, &exprErr) || errors.As(err, &incErr) || errors.As(err, &disErr)
}

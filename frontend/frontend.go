// Package frontend wires together ast, lexer, and parser into a single
// incremental entry point: feed bytes in arbitrary chunks, get statements
// and diagnostics back as they complete.
package frontend

import (
	"github.com/mbctl/gcodefe/ast"
	"github.com/mbctl/gcodefe/lexer"
	"github.com/mbctl/gcodefe/parser"
)

// StatementHandler receives one completed Statement root per call, in
// input order. tree is the Frontend's own arena; the handler must not
// retain root past a call it does not want released (see Tree.Release).
type StatementHandler func(tree *ast.Tree, root ast.Ref)

// Diagnostic is a single lexical or grammar error, carrying the same
// line/col a Sink method would have received for the token at fault.
type Diagnostic struct {
	Message string
	Line    int
	Col     int
}

// Frontend owns one AST arena and drives one Lexer+Parser pair over it.
// It is not safe for concurrent use, matching ast.Tree and lexer.Lexer's
// single-instance-per-goroutine contract.
type Frontend struct {
	Tree *ast.Tree

	lx *lexer.Lexer
	ps *parser.Parser

	onStatement StatementHandler
	onError     ErrorHandler
	diags       []Diagnostic
}

// ErrorHandler receives each diagnostic as it is reported and decides,
// advisorily, whether feeding should continue. Returning false for a
// lexical diagnostic stops the in-flight Feed call from handing any
// further bytes to the lexer; the Frontend itself remains valid and a
// later Feed resumes normally. The return value is ignored for grammar
// diagnostics reported by the parser: feeding continues after those.
type ErrorHandler func(d Diagnostic) bool

// New returns a Frontend that reports completed statements to onStatement
// (which may be nil to discard them) and classifies raw-argument commands
// with isRaw (nil selects lexer.DefaultRawCommands).
func New(onStatement StatementHandler, isRaw lexer.RawPredicate) *Frontend {
	f := &Frontend{
		Tree:        ast.NewTree(),
		onStatement: onStatement,
	}
	f.ps = parser.NewParser(f.Tree, f, f)
	f.lx = lexer.New(f.ps, f, isRaw)
	return f
}

// Feed advances the lexer over a chunk of input. Chunk boundaries never
// change the resulting token or statement sequence.
func (f *Frontend) Feed(data []byte) {
	f.lx.Feed(data)
}

// Finish signals end of input, flushing any statement still in progress
// and diagnosing an unterminated string or expression. Safe to call more
// than once; later calls are no-ops.
func (f *Frontend) Finish() {
	f.lx.Finish()
}

// Reset returns the Frontend to its just-constructed state: line 1,
// column 1, no buffered partial statement, diagnostics cleared. The AST
// arena itself is not reset — callers that want a clean arena should
// construct a new Frontend.
func (f *Frontend) Reset() {
	f.lx.Reset()
	f.ps.Abort(1, 1)
	f.diags = f.diags[:0]
}

// Diagnostics returns every diagnostic reported since construction or the
// last Reset, in the order they occurred.
func (f *Frontend) Diagnostics() []Diagnostic {
	return f.diags
}

// OnStatement implements parser.Consumer.
func (f *Frontend) OnStatement(tree *ast.Tree, root ast.Ref) {
	if f.onStatement != nil {
		f.onStatement(tree, root)
	}
}

// SetErrorHandler installs handler to decide, per diagnostic, whether
// feeding should continue. A nil handler (the default) always continues.
func (f *Frontend) SetErrorHandler(handler ErrorHandler) {
	f.onError = handler
}

// OnError implements lexer.ErrorSink, and doubles as the parser's
// lexer.ErrorSink (see parser.NewParser) since both diagnostics streams
// share the same shape. Defers the continue-or-abort decision to the
// installed ErrorHandler, if any.
func (f *Frontend) OnError(message string, line, col int) bool {
	d := Diagnostic{Message: message, Line: line, Col: col}
	f.diags = append(f.diags, d)
	if f.onError != nil {
		return f.onError(d)
	}
	return true
}

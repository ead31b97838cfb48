// Package parser implements the push-driven grammar engine that turns a
// lexer's token stream into the AST defined by package ast. A Parser
// implements lexer.Sink directly, so a frontend wires a Lexer straight into
// a Parser with no intermediate token slice of its own.
package parser

import (
	"fmt"

	"github.com/mbctl/gcodefe/ast"
	"github.com/mbctl/gcodefe/keyword"
	"github.com/mbctl/gcodefe/lexer"
)

// Consumer receives completed statements. OnStatement is called at most
// once per EndOfStatement the lexer reports, and never for a statement that
// failed to parse (see error recovery below).
type Consumer interface {
	OnStatement(tree *ast.Tree, root ast.Ref)
}

// Parser buffers one statement's worth of tokens at a time and reduces them
// against the expression/statement grammar when EndOfStatement arrives.
type Parser struct {
	tree     *ast.Tree
	consumer Consumer
	errs     lexer.ErrorSink
	buf      []ptoken
}

// NewParser returns a Parser that allocates nodes in tree and reports
// completed statements to consumer. errs may be nil.
func NewParser(tree *ast.Tree, consumer Consumer, errs lexer.ErrorSink) *Parser {
	return &Parser{tree: tree, consumer: consumer, errs: errs}
}

var _ lexer.Sink = (*Parser)(nil)

func (p *Parser) Keyword(id keyword.ID, line, col int) {
	p.buf = append(p.buf, ptoken{kind: tkKeyword, id: id, line: line, col: col})
}

func (p *Parser) Identifier(value string, line, col int) {
	p.buf = append(p.buf, ptoken{kind: tkIdentifier, sval: value, line: line, col: col})
}

func (p *Parser) String(value string, line, col int) {
	p.buf = append(p.buf, ptoken{kind: tkString, sval: value, line: line, col: col})
}

func (p *Parser) Integer(value int64, line, col int) {
	p.buf = append(p.buf, ptoken{kind: tkInteger, ival: value, line: line, col: col})
}

func (p *Parser) Float(value float64, line, col int) {
	p.buf = append(p.buf, ptoken{kind: tkFloat, fval: value, line: line, col: col})
}

func (p *Parser) Bridge(line, col int) {
	p.buf = append(p.buf, ptoken{kind: tkBridge, line: line, col: col})
}

// EndOfStatement reduces the buffered tokens into a Statement node and
// fires the consumer, or, on a grammar error, releases whatever the
// reduction had already built and reports a diagnostic instead. Parsing
// always resumes cleanly at the next statement.
func (p *Parser) EndOfStatement(line, col int) {
	toks := p.buf
	p.buf = nil
	red := &reducer{tree: p.tree, toks: toks}
	root, err := red.parseStatement()
	if err != nil {
		p.reportError(err)
		return
	}
	p.consumer.OnStatement(p.tree, root)
}

// Abort discards the in-flight statement buffer without reducing it: the
// lexer found an error after at least one valid token had already been
// pushed. No partial AST was ever built, so there is
// nothing for the parser to release.
func (p *Parser) Abort(line, col int) {
	p.buf = nil
}

func (p *Parser) reportError(err error) {
	if p.errs == nil {
		return
	}
	pe, ok := err.(*parseError)
	if !ok {
		p.errs.OnError(err.Error(), line0, col0)
		return
	}
	p.errs.OnError(pe.msg, pe.line, pe.col)
}

// line0/col0 back a defensive fallback only; every error path in this
// package constructs a *parseError carrying real coordinates.
const line0, col0 = 0, 0

// parseError carries the source position of a grammar violation so the
// consumer's diagnostic matches the token that triggered it.
type parseError struct {
	msg       string
	line, col int
}

func (e *parseError) Error() string { return fmt.Sprintf("%d:%d: %s", e.line, e.col, e.msg) }

func errAt(line, col int, format string, args ...any) *parseError {
	return &parseError{msg: fmt.Sprintf(format, args...), line: line, col: col}
}

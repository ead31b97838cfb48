package parser

import (
	"github.com/mbctl/gcodefe/ast"
	"github.com/mbctl/gcodefe/keyword"
)

// reducer walks one statement's buffered tokens exactly once, building the
// AST defined in ast.Tree via ordinary recursive descent. Each parse*
// method holds only the refs it has personally built, and releases them
// before propagating an error, so a mid-expression failure never leaks a
// subtree into the tree's arena.
type reducer struct {
	tree *ast.Tree
	toks []ptoken
	pos  int
}

func (r *reducer) peek() (ptoken, bool) {
	if r.pos >= len(r.toks) {
		return ptoken{}, false
	}
	return r.toks[r.pos], true
}

func (r *reducer) advance() ptoken {
	t := r.toks[r.pos]
	r.pos++
	return t
}

// peekKeyword reports whether the next token is the keyword id, without
// consuming it.
func (r *reducer) peekKeyword(id keyword.ID) bool {
	t, ok := r.peek()
	return ok && t.kind == tkKeyword && t.id == id
}

// takeKeyword consumes and returns true if the next token is the keyword
// id; otherwise leaves the buffer untouched.
func (r *reducer) takeKeyword(id keyword.ID) bool {
	if r.peekKeyword(id) {
		r.advance()
		return true
	}
	return false
}

// expectKeyword consumes the keyword id or fails with a diagnostic
// positioned at whatever token actually came next (or at the last known
// position, if the buffer ran out).
func (r *reducer) expectKeyword(id keyword.ID) error {
	t, ok := r.peek()
	if !ok {
		line, col := r.lastPos()
		return errAt(line, col, "expected %q, reached end of statement", id.String())
	}
	if t.kind != tkKeyword || t.id != id {
		return errAt(t.line, t.col, "expected %q", id.String())
	}
	r.advance()
	return nil
}

func (r *reducer) lastPos() (int, int) {
	if len(r.toks) == 0 {
		return 0, 0
	}
	last := r.toks[len(r.toks)-1]
	return last.line, last.col
}

// release frees every ref in refs individually (they are not yet chained
// together, so Release rather than ReleaseChain is correct here).
func (r *reducer) release(refs ...ast.Ref) {
	for _, ref := range refs {
		r.tree.Release(ref)
	}
}

// parseStatement implements `statements := (statement)*` for a single
// already-delimited statement: `statement := field statement | ε` reduced
// to a flat loop, since this reducer only ever sees one statement's worth
// of tokens (the lexer never sends EndOfStatement for an empty line).
func (r *reducer) parseStatement() (ast.Ref, error) {
	var fields []ast.Ref
	for r.pos < len(r.toks) {
		f, err := r.parseField()
		if err != nil {
			r.release(fields...)
			return ast.NoNode, err
		}
		fields = append(fields, f)
	}
	return r.tree.NewStatement(fields...), nil
}

// parseField implements `field := string | "{" expr "}" | field BRIDGE
// field`, folding the left-recursive BRIDGE production into a loop that
// left-associates a chain of Concat nodes.
func (r *reducer) parseField() (ast.Ref, error) {
	left, err := r.parseFieldAtom()
	if err != nil {
		return ast.NoNode, err
	}
	for {
		t, ok := r.peek()
		if !ok || t.kind != tkBridge {
			return left, nil
		}
		r.advance()
		right, err := r.parseFieldAtom()
		if err != nil {
			r.release(left)
			return ast.NoNode, err
		}
		left = r.tree.NewOperator(ast.OpConcat, left, right)
	}
}

// parseFieldAtom parses one non-recursive alternative of `field`: a
// literal value segment (string, integer, or float), or a braced
// expression.
func (r *reducer) parseFieldAtom() (ast.Ref, error) {
	t, ok := r.peek()
	if !ok {
		line, col := r.lastPos()
		return ast.NoNode, errAt(line, col, "unexpected end of statement")
	}
	switch {
	case t.kind == tkKeyword && t.id == keyword.LBrace:
		r.advance()
		e, err := r.parseExpr()
		if err != nil {
			return ast.NoNode, err
		}
		if err := r.expectKeyword(keyword.RBrace); err != nil {
			r.release(e)
			return ast.NoNode, err
		}
		return e, nil
	case t.kind == tkString:
		r.advance()
		return r.tree.NewString(t.sval), nil
	case t.kind == tkInteger:
		r.advance()
		return r.tree.NewInteger(t.ival), nil
	case t.kind == tkFloat:
		r.advance()
		return r.tree.NewFloat(t.fval), nil
	default:
		return ast.NoNode, errAt(t.line, t.col, "unexpected token in field position")
	}
}

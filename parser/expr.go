package parser

import (
	"math"

	"github.com/mbctl/gcodefe/ast"
	"github.com/mbctl/gcodefe/keyword"
)

// Expression grammar, implemented as a chain of recursive-descent layers,
// outermost (loosest-binding) first:
//
//	parseExpr   -> OR
//	parseOr     -> AND
//	parseAnd    -> = (equality)
//	parseEq     -> ~ (concat)
//	parseConcat -> +/-
//	parseAdd    -> * / %
//	parseMul    -> </ >/ <=/ >=           (relational binds TIGHTER than */ here)
//	parseRel    -> ternary IF...ELSE      (right-associative)
//	parseTernary   -> **
//	parsePow       -> unary !
//	parseUnaryNot  -> unary +/-
//	parseUnarySign -> . and [ ]           (postfix, tightest but for BRIDGE)
//	parsePostfix   -> primary
//
// This ladder deliberately does not match C-family precedence: relational
// outranks arithmetic, unary outranks **, and ternary sits between
// relational and **.

func (r *reducer) parseExpr() (ast.Ref, error) { return r.parseOr() }

func (r *reducer) parseOr() (ast.Ref, error) {
	return r.parseBinaryLeft(r.parseAnd, keyword.Or, ast.OpOr)
}

func (r *reducer) parseAnd() (ast.Ref, error) {
	return r.parseBinaryLeft(r.parseEq, keyword.And, ast.OpAnd)
}

func (r *reducer) parseEq() (ast.Ref, error) {
	return r.parseBinaryLeft(r.parseConcat, keyword.Equals, ast.OpEquals)
}

func (r *reducer) parseConcat() (ast.Ref, error) {
	return r.parseBinaryLeft(r.parseAdd, keyword.Tilde, ast.OpConcat)
}

func (r *reducer) parseAdd() (ast.Ref, error) {
	left, err := r.parseMul()
	if err != nil {
		return ast.NoNode, err
	}
	for {
		t, ok := r.peek()
		if !ok || t.kind != tkKeyword {
			return left, nil
		}
		var op ast.OpKind
		switch t.id {
		case keyword.Plus:
			op = ast.OpAdd
		case keyword.Minus:
			op = ast.OpSub
		default:
			return left, nil
		}
		r.advance()
		right, err := r.parseMul()
		if err != nil {
			r.release(left)
			return ast.NoNode, err
		}
		left = r.tree.NewOperator(op, left, right)
	}
}

func (r *reducer) parseMul() (ast.Ref, error) {
	left, err := r.parseRel()
	if err != nil {
		return ast.NoNode, err
	}
	for {
		t, ok := r.peek()
		if !ok || t.kind != tkKeyword {
			return left, nil
		}
		var op ast.OpKind
		switch t.id {
		case keyword.Star:
			op = ast.OpMul
		case keyword.Slash:
			op = ast.OpDiv
		case keyword.Percent:
			op = ast.OpMod
		default:
			return left, nil
		}
		r.advance()
		right, err := r.parseRel()
		if err != nil {
			r.release(left)
			return ast.NoNode, err
		}
		left = r.tree.NewOperator(op, left, right)
	}
}

func (r *reducer) parseRel() (ast.Ref, error) {
	left, err := r.parseTernary()
	if err != nil {
		return ast.NoNode, err
	}
	for {
		t, ok := r.peek()
		if !ok || t.kind != tkKeyword {
			return left, nil
		}
		var op ast.OpKind
		switch t.id {
		case keyword.Lt:
			op = ast.OpLt
		case keyword.Gt:
			op = ast.OpGt
		case keyword.Lte:
			op = ast.OpLte
		case keyword.Gte:
			op = ast.OpGte
		default:
			return left, nil
		}
		r.advance()
		right, err := r.parseTernary()
		if err != nil {
			r.release(left)
			return ast.NoNode, err
		}
		left = r.tree.NewOperator(op, left, right)
	}
}

// parseTernary handles `expr IF expr ELSE expr`, right-associative. The
// condition between IF and ELSE is parsed as a full expression (parseExpr)
// rather than at this level's own operand precedence: IF/ELSE act as their
// own delimiters, the same role parentheses play for parsePrimary, so a
// condition may freely use any operator including the loosest (OR/AND).
func (r *reducer) parseTernary() (ast.Ref, error) {
	left, err := r.parsePow()
	if err != nil {
		return ast.NoNode, err
	}
	if !r.peekKeyword(keyword.If) {
		return left, nil
	}
	r.advance()
	cond, err := r.parseExpr()
	if err != nil {
		r.release(left)
		return ast.NoNode, err
	}
	if err := r.expectKeyword(keyword.Else); err != nil {
		r.release(left, cond)
		return ast.NoNode, err
	}
	right, err := r.parseTernary()
	if err != nil {
		r.release(left, cond)
		return ast.NoNode, err
	}
	return r.tree.NewOperator(ast.OpIfElse, left, cond, right), nil
}

// parsePow handles `**`. Left-associative: the ternary is the only
// right-associative operator in this grammar.
func (r *reducer) parsePow() (ast.Ref, error) {
	return r.parseBinaryLeft(r.parseUnaryNot, keyword.StarStar, ast.OpPow)
}

// parseUnaryNot handles unary `!`, right-recursive so `!!x` parses.
func (r *reducer) parseUnaryNot() (ast.Ref, error) {
	if r.takeKeyword(keyword.Not) {
		operand, err := r.parseUnaryNot()
		if err != nil {
			return ast.NoNode, err
		}
		return r.tree.NewOperator(ast.OpNot, operand), nil
	}
	return r.parseUnarySign()
}

// parseUnarySign handles unary `+`/`-`. Unary `+` is a no-op and returns
// its operand unchanged rather than wrapping it.
func (r *reducer) parseUnarySign() (ast.Ref, error) {
	if r.takeKeyword(keyword.Plus) {
		return r.parseUnarySign()
	}
	if r.takeKeyword(keyword.Minus) {
		operand, err := r.parseUnarySign()
		if err != nil {
			return ast.NoNode, err
		}
		return r.tree.NewOperator(ast.OpNeg, operand), nil
	}
	return r.parsePostfix()
}

// parsePostfix handles the tightest-but-BRIDGE pair, `.` (dotted lookup by
// a bare parameter name) and `[` (bracketed lookup by an arbitrary
// expression), both reducing to Operator(Lookup).
func (r *reducer) parsePostfix() (ast.Ref, error) {
	base, err := r.parsePrimary()
	if err != nil {
		return ast.NoNode, err
	}
	for {
		if r.takeKeyword(keyword.Dot) {
			t, ok := r.peek()
			if !ok || t.kind != tkIdentifier {
				line, col := r.lastPos()
				if ok {
					line, col = t.line, t.col
				}
				r.release(base)
				return ast.NoNode, errAt(line, col, "expected parameter name after '.'")
			}
			r.advance()
			param := r.tree.NewParameter(t.sval)
			base = r.tree.NewOperator(ast.OpLookup, base, param)
			continue
		}
		if r.takeKeyword(keyword.LBracket) {
			idx, err := r.parseExpr()
			if err != nil {
				r.release(base)
				return ast.NoNode, err
			}
			if err := r.expectKeyword(keyword.RBracket); err != nil {
				r.release(base, idx)
				return ast.NoNode, err
			}
			base = r.tree.NewOperator(ast.OpLookup, base, idx)
			continue
		}
		return base, nil
	}
}

// parsePrimary handles literals, parenthesized expressions, bare
// parameters, and function calls.
func (r *reducer) parsePrimary() (ast.Ref, error) {
	t, ok := r.peek()
	if !ok {
		line, col := r.lastPos()
		return ast.NoNode, errAt(line, col, "unexpected end of expression")
	}
	switch t.kind {
	case tkInteger:
		r.advance()
		return r.tree.NewInteger(t.ival), nil
	case tkFloat:
		r.advance()
		return r.tree.NewFloat(t.fval), nil
	case tkString:
		r.advance()
		return r.tree.NewString(t.sval), nil
	case tkIdentifier:
		r.advance()
		if r.takeKeyword(keyword.LParen) {
			args, err := r.parseArgList()
			if err != nil {
				return ast.NoNode, err
			}
			if err := r.expectKeyword(keyword.RParen); err != nil {
				r.release(args...)
				return ast.NoNode, err
			}
			return r.tree.NewFunction(t.sval, args...), nil
		}
		return r.tree.NewParameter(t.sval), nil
	case tkKeyword:
		switch t.id {
		case keyword.True:
			r.advance()
			return r.tree.NewBool(true), nil
		case keyword.False:
			r.advance()
			return r.tree.NewBool(false), nil
		case keyword.Nan:
			r.advance()
			return r.tree.NewFloat(math.NaN()), nil
		case keyword.Infinity:
			r.advance()
			return r.tree.NewFloat(math.Inf(1)), nil
		case keyword.LParen:
			r.advance()
			e, err := r.parseExpr()
			if err != nil {
				return ast.NoNode, err
			}
			if err := r.expectKeyword(keyword.RParen); err != nil {
				r.release(e)
				return ast.NoNode, err
			}
			return e, nil
		}
	}
	return ast.NoNode, errAt(t.line, t.col, "unexpected token in expression")
}

// parseArgList implements `arg_list := ε | expr ("," expr)*`.
func (r *reducer) parseArgList() ([]ast.Ref, error) {
	if r.peekKeyword(keyword.RParen) {
		return nil, nil
	}
	var args []ast.Ref
	for {
		e, err := r.parseExpr()
		if err != nil {
			r.release(args...)
			return nil, err
		}
		args = append(args, e)
		if !r.takeKeyword(keyword.Comma) {
			return args, nil
		}
	}
}

// parseBinaryLeft factors the common shape shared by every strictly
// left-associative binary layer: parse one higher-precedence operand, then
// fold in zero or more (op, operand) pairs.
func (r *reducer) parseBinaryLeft(next func() (ast.Ref, error), kw keyword.ID, op ast.OpKind) (ast.Ref, error) {
	left, err := next()
	if err != nil {
		return ast.NoNode, err
	}
	for r.takeKeyword(kw) {
		right, err := next()
		if err != nil {
			r.release(left)
			return ast.NoNode, err
		}
		left = r.tree.NewOperator(op, left, right)
	}
	return left, nil
}

package lexer

import "github.com/mbctl/gcodefe/keyword"

// exprScan holds the lexer's state while inside a brace expression: the
// two-character-operator disambiguation byte. The state to resume once the
// closing '}' is seen lives in Lexer.afterExpr.
type exprScan struct {
	pending byte // the first byte of a possibly-two-char operator
}

// enterExpr consumes the opening '{', emits it as a keyword token, and
// switches into expression-token dispatch. ret is the state to resume
// once the matching '}' closes the expression (segment scanning resumes
// there and decides whether a further bridge follows).
func (lx *Lexer) enterExpr(ret state) {
	lx.emitBridgeIfNeeded()
	lx.tokens.Keyword(keyword.LBrace, lx.line, lx.col)
	lx.haveToken = true
	lx.inExpr = true
	lx.afterExpr = ret
	lx.state = sExprDispatch
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// stepExprDispatch recognizes one token inside a brace expression:
// punctuation, an operator (possibly two characters), a string, a number,
// or the start of an identifier/keyword. Nested parentheses, brackets,
// commas and dots are ordinary tokens the parser matches itself; only the
// outer '}' is special, since the grammar never nests a second '{'
// inside an expression.
func (lx *Lexer) stepExprDispatch(b byte) {
	switch {
	case isSpace(b) || b == '\n':
		return
	case b == '}':
		lx.tokens.Keyword(keyword.RBrace, lx.line, lx.col)
		lx.inExpr = false
		lx.state = lx.afterExpr
		lx.resumeAfterExpr()
		return
	case b == '"':
		lx.beginString(sExprDispatch)
	case isDigit(b):
		lx.beginNumber(b)
	case isAlpha(b):
		lx.buf = lx.buf[:0]
		lx.buf = append(lx.buf, lower(b))
		lx.state = sExprIdentifier
	case b == '<' || b == '>':
		lx.xpr.pending = b
		lx.state = sExprPendingOp
	case b == '*':
		lx.xpr.pending = b
		lx.state = sExprPendingOp
	default:
		if id, ok := keyword.Lookup(string(b)); ok {
			lx.tokens.Keyword(id, lx.line, lx.col)
			return
		}
		lx.fail("unrecognized symbol in expression")
		lx.state = sScanError
	}
}

// resumeAfterExpr is called immediately after the '}' closes; segment
// contexts that invoked the expression need lx.segStart left false so a
// following adjacent segment is bridged, not treated as the field's
// first piece.
func (lx *Lexer) resumeAfterExpr() {
	lx.segStart = false
}

func (lx *Lexer) stepExprPendingOp(b byte) {
	first := lx.xpr.pending
	switch {
	case first == '<' && b == '=':
		lx.tokens.Keyword(keyword.Lte, lx.line, lx.col)
		lx.state = sExprDispatch
	case first == '>' && b == '=':
		lx.tokens.Keyword(keyword.Gte, lx.line, lx.col)
		lx.state = sExprDispatch
	case first == '*' && b == '*':
		lx.tokens.Keyword(keyword.StarStar, lx.line, lx.col)
		lx.state = sExprDispatch
	default:
		var id keyword.ID
		switch first {
		case '<':
			id = keyword.Lt
		case '>':
			id = keyword.Gt
		case '*':
			id = keyword.Star
		}
		lx.tokens.Keyword(id, lx.line, lx.col)
		lx.state = sExprDispatch
		lx.stepExprDispatch(b)
	}
}

// stepExprIdentifier accumulates an identifier, lowercased, checking it
// against the keyword table (uppercased) once a terminator is reached.
// Non-keyword identifiers are reported as Parameter-bound names; the
// parser, not the lexer, decides between a bare variable reference and a
// function call based on whether '(' immediately follows.
func (lx *Lexer) stepExprIdentifier(b byte) {
	if isAlnum(b) {
		lx.buf = append(lx.buf, lower(b))
		return
	}
	name := string(lx.buf)
	lx.buf = lx.buf[:0]
	if id, ok := keyword.Lookup(upperString(name)); ok {
		lx.tokens.Keyword(id, lx.line, lx.col)
	} else {
		lx.tokens.Identifier(name, lx.line, lx.col)
	}
	lx.state = sExprDispatch
	lx.stepExprDispatch(b)
}

func upperString(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = upper(s[i])
	}
	return string(out)
}

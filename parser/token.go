package parser

import "github.com/mbctl/gcodefe/keyword"

// tokKind identifies what kind of payload a buffered token carries.
type tokKind uint8

const (
	tkKeyword tokKind = iota
	tkIdentifier
	tkString
	tkInteger
	tkFloat
	tkBridge
)

// ptoken is a single lexer event, buffered verbatim until the statement it
// belongs to is complete. The parser deliberately accumulates a whole
// statement's tokens before reducing, rather than threading a value stack
// across individual Sink calls: the Parser still receives tokens one push
// at a time at the Sink boundary, but the reduction itself runs once per
// statement against the buffered slice. This keeps the precedence ladder
// expressible as ordinary recursive descent instead of a hand-threaded
// shift-reduce automaton.
type ptoken struct {
	kind tokKind
	id   keyword.ID
	sval string
	ival int64
	fval float64
	line int
	col  int
}

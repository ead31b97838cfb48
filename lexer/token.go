// Package lexer implements the incremental, context-sensitive lexical
// analyzer for the G-code dialect. It converts a byte stream, fed in
// arbitrary-sized chunks, into a sequence of tokens delivered through a
// Sink, tracking line/column for diagnostics and suspending cleanly
// between any two bytes so that a chunk boundary never changes the token
// sequence a caller observes.
package lexer

import "github.com/mbctl/gcodefe/keyword"

// Sink receives tokens as the lexer produces them. Every method is called
// synchronously from inside Feed/Finish, in strict input order.
// Implementations transfer ownership of
// any string payload immediately; the lexer never reuses a string value
// after emitting it.
type Sink interface {
	// Keyword reports a punctuation symbol or reserved word.
	Keyword(id keyword.ID, line, col int)
	// Identifier reports an expression identifier (lowercased). Command
	// names and argument keys are not reported here; they arrive through
	// String.
	Identifier(value string, line, col int)
	// String reports a command name, an argument key, a string literal
	// (escapes already resolved), or a raw/traditional argument value that
	// is not a recognized number.
	String(value string, line, col int)
	// Integer reports a signed 64-bit integer literal.
	Integer(value int64, line, col int)
	// Float reports an IEEE-754 double literal.
	Float(value float64, line, col int)
	// Bridge reports a concatenation hint between two adjacent,
	// whitespace-free value segments.
	Bridge(line, col int)
	// EndOfStatement reports the end of a non-empty statement.
	EndOfStatement(line, col int)
	// Abort tells the sink to discard whatever tokens it has buffered for
	// the in-flight statement without treating them as complete: a lexical
	// error was found after at least one valid token had already been
	// emitted. No EndOfStatement follows an Abort for the
	// same statement.
	Abort(line, col int)
}

// ErrorSink receives diagnostics. OnError's return value is advisory: the
// this implementation treats `false` as a request to stop feeding
// further bytes for the remainder of the current Feed call.
type ErrorSink interface {
	OnError(message string, line, col int) bool
}

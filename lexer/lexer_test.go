package lexer

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/mbctl/gcodefe/keyword"
	"github.com/stretchr/testify/assert"
)

// recorder is a Sink/ErrorSink used by tests to capture the exact token
// and diagnostic sequence a Lexer produces, as plain strings so test
// assertions read like readable scenario descriptions.
type recorder struct {
	events       []string
	errors       []string
	abortOnError bool
}

func (r *recorder) Keyword(id keyword.ID, line, col int) {
	r.events = append(r.events, "kw:"+id.String())
}

func (r *recorder) Identifier(value string, line, col int) {
	r.events = append(r.events, "id:"+value)
}

func (r *recorder) String(value string, line, col int) {
	r.events = append(r.events, "str:"+value)
}

func (r *recorder) Integer(value int64, line, col int) {
	r.events = append(r.events, "int:"+strconv.FormatInt(value, 10))
}

func (r *recorder) Float(value float64, line, col int) {
	r.events = append(r.events, "float:"+strconv.FormatFloat(value, 'g', -1, 64))
}

func (r *recorder) Bridge(line, col int) {
	r.events = append(r.events, "bridge")
}

func (r *recorder) EndOfStatement(line, col int) {
	r.events = append(r.events, "eos")
}

func (r *recorder) Abort(line, col int) {
	r.events = append(r.events, "abort")
}

func (r *recorder) OnError(message string, line, col int) bool {
	r.errors = append(r.errors, fmt.Sprintf("%d:%d: %s", line, col, message))
	return !r.abortOnError
}

func lexAll(t *testing.T, chunks ...string) *recorder {
	t.Helper()
	rec := &recorder{}
	lx := New(rec, rec, nil)
	for _, c := range chunks {
		lx.Feed([]byte(c))
	}
	lx.Finish()
	return rec
}

func TestLexer_TraditionalCommand(t *testing.T) {
	rec := lexAll(t, "G1 X10 Y20.5\n")
	assert.Equal(t, []string{
		"str:G1", "str:X", "int:10", "str:Y", "float:20.5", "eos",
	}, rec.events)
	assert.Empty(t, rec.errors)
}

func TestLexer_ExtendedCommand(t *testing.T) {
	rec := lexAll(t, "SET_FAN SPEED=0.5\n")
	assert.Equal(t, []string{
		"str:SET_FAN", "str:SPEED", "float:0.5", "eos",
	}, rec.events)
}

func TestLexer_ExpressionArithmetic(t *testing.T) {
	rec := lexAll(t, "G1 X{1+2*3}\n")
	assert.Equal(t, []string{
		"str:G1", "str:X",
		"kw:{", "int:1", "kw:+", "int:2", "kw:*", "int:3", "kw:}",
		"eos",
	}, rec.events)
}

func TestLexer_RawEchoWithBridgedExpr(t *testing.T) {
	rec := lexAll(t, "ECHO hello {x} world\n")
	assert.Equal(t, []string{
		"str:ECHO", "str:hello ",
		"bridge", "kw:{", "id:x", "kw:}",
		"bridge", "str: world",
		"eos",
	}, rec.events)
}

func TestLexer_RawQuotedString(t *testing.T) {
	rec := lexAll(t, `M117 "quoted \"str\""` + "\n")
	assert.Equal(t, []string{
		"str:M117", `str:quoted "str"`, "eos",
	}, rec.events)
}

func TestLexer_TraditionalMissingValueIsEmptyString(t *testing.T) {
	rec := lexAll(t, "G1 X\n")
	assert.Equal(t, []string{
		"str:G1", "str:X", "str:", "eos",
	}, rec.events)
}

func TestLexer_TernaryExpression(t *testing.T) {
	rec := lexAll(t, "{1 if 2 < 3 else 4}\n")
	assert.Equal(t, []string{
		"kw:{", "int:1", "kw:IF", "int:2", "kw:<", "int:3", "kw:ELSE", "int:4", "kw:}",
		"eos",
	}, rec.events)
}

func TestLexer_HexFloat(t *testing.T) {
	rec := lexAll(t, "G1 X0x1.8p1\n")
	assert.Equal(t, []string{
		"str:G1", "str:X", "float:3", "eos",
	}, rec.events)
}

func TestLexer_UnterminatedStringDiscardsStatementButResumes(t *testing.T) {
	rec := lexAll(t, "G1 \"abc\nG1 X1\n")
	assert.Contains(t, rec.errors[0], "unterminated string literal")
	// "G1" was already emitted before the error, so the lexer's Abort
	// signal (not a suppressed token) is what keeps this from becoming a
	// statement; the next line still parses normally.
	assert.Equal(t, []string{
		"str:G1", "abort", "str:G1", "str:X", "int:1", "eos",
	}, rec.events)
}

func TestLexer_BlankAndCommentLinesThenCommand(t *testing.T) {
	rec := lexAll(t, "\n\n;comment\nG1\n")
	assert.Equal(t, []string{"str:G1", "eos"}, rec.events)
}

func TestLexer_ChunkInvarianceAcrossArbitraryBoundaries(t *testing.T) {
	whole := "G1 X10 Y20.5\nSET_FAN SPEED=0.5\nECHO hi {1+1}\n"
	full := lexAll(t, whole)
	for split := 1; split < len(whole); split++ {
		chunked := lexAll(t, whole[:split], whole[split:])
		assert.Equal(t, full.events, chunked.events, "split at %d", split)
	}
}

func TestLexer_FinishFlushesDanglingStatementWithoutTrailingNewline(t *testing.T) {
	rec := lexAll(t, "G1 X10")
	assert.Equal(t, []string{"str:G1", "str:X", "int:10", "eos"}, rec.events)
}

func TestLexer_FinishIsIdempotent(t *testing.T) {
	rec := &recorder{}
	lx := New(rec, rec, nil)
	lx.Feed([]byte("G1 X10"))
	lx.Finish()
	first := append([]string(nil), rec.events...)
	lx.Finish()
	assert.Equal(t, first, rec.events)
}

func TestLexer_FinishOnUnterminatedExpression(t *testing.T) {
	rec := lexAll(t, "G1 X{1+2")
	assert.Contains(t, rec.errors[0], "unterminated expression")
	assert.Equal(t, []string{
		"str:G1", "str:X", "kw:{", "int:1", "kw:+", "abort",
	}, rec.events, "tokens already sent are discarded via Abort, never a trailing eos")
}

func TestLexer_ExtendedMissingEqualsIsDiagnostic(t *testing.T) {
	rec := lexAll(t, "SET_FAN SPEED 5\nG1 X1\n")
	assert.Contains(t, rec.errors[0], "EXTENDED argument missing '='")
	assert.Equal(t, []string{
		"str:SET_FAN", "abort", "str:G1", "str:X", "int:1", "eos",
	}, rec.events)
}

func TestLexer_NumericBases(t *testing.T) {
	rec := lexAll(t, "G1 X0x1A Y0b1010 Z0755\n")
	assert.Equal(t, []string{
		"str:G1",
		"str:X", "int:26",
		"str:Y", "int:10",
		"str:Z", "int:493",
		"eos",
	}, rec.events)
}

func TestLexer_FractionalBinaryLiteralIsDiagnosed(t *testing.T) {
	rec := lexAll(t, "G1 X{0b101.1}\nG1 Y2\n")
	assert.Contains(t, rec.errors[0], "fractional binary literal")
	assert.Equal(t, []string{
		"str:G1", "str:X", "kw:{", "abort",
		"str:G1", "str:Y", "int:2", "eos",
	}, rec.events)
}

func TestLexer_FractionalOctalLiteralIsDiagnosed(t *testing.T) {
	rec := lexAll(t, "G1 X0755.5\nG1 Y2\n")
	assert.Contains(t, rec.errors[0], "fractional octal literal")
	assert.Equal(t, []string{
		"str:G1", "str:X", "abort",
		"str:G1", "str:Y", "int:2", "eos",
	}, rec.events)
}

func TestLexer_LeadingZeroDecimalFloatIsNotFractionalOctal(t *testing.T) {
	// "0.5" has no octal digits before the point, so it is an ordinary
	// decimal float, not a rejected "fractional octal" literal.
	rec := lexAll(t, "G1 X0.5\n")
	assert.Empty(t, rec.errors)
	assert.Equal(t, []string{"str:G1", "str:X", "float:0.5", "eos"}, rec.events)
}

func TestLexer_StringEscapes(t *testing.T) {
	// \x41 stops at the non-hex 'Z'; \101 is a fixed-width-or-less octal
	// escape (1 to 3 digits) for the same byte, 'A'.
	rec := lexAll(t, `ECHO "a\tb\x41Z\101"`+"\n")
	assert.Equal(t, []string{"str:ECHO", "str:a\tbAZA", "eos"}, rec.events)
}

func TestLexer_OctalEscapeOverflowIsDiagnosed(t *testing.T) {
	// \777 is 511 decimal, which does not fit in a byte, unlike \101 above.
	rec := lexAll(t, `ECHO "\777"`+"\nG1 X1\n")
	assert.Contains(t, rec.errors[0], "octal escape does not fit in a byte")
	assert.Equal(t, []string{
		"str:ECHO", "abort",
		"str:G1", "str:X", "int:1", "eos",
	}, rec.events)
}

func TestLexer_LineNumberPrefixIsDiscarded(t *testing.T) {
	rec := lexAll(t, "N10 G1 X1\n")
	assert.Equal(t, []string{"str:G1", "str:X", "int:1", "eos"}, rec.events)
}

func TestLexer_ResetReturnsToLineOne(t *testing.T) {
	rec := &recorder{}
	lx := New(rec, rec, nil)
	lx.Feed([]byte("G1 X{1+"))
	lx.Reset()
	assert.Equal(t, 1, lx.line)
	assert.Equal(t, 1, lx.col)
	rec.events = nil
	lx.Feed([]byte("G1 X1\n"))
	assert.Equal(t, []string{"str:G1", "str:X", "int:1", "eos"}, rec.events)
}

func TestLexer_ChecksumSuffixIsStrippedSilently(t *testing.T) {
	rec := lexAll(t, "G1 X10*42\n")
	assert.Equal(t, []string{
		"str:G1", "str:X", "int:10", "eos",
	}, rec.events)
	assert.Empty(t, rec.errors)
}

func TestLexer_ChecksumSuffixLiteralInRawMessage(t *testing.T) {
	rec := lexAll(t, "ECHO hi*42\n")
	assert.Equal(t, []string{
		"str:ECHO", "str:hi*42", "eos",
	}, rec.events)
}

func TestLexer_CustomRawPredicate(t *testing.T) {
	rec := &recorder{}
	lx := New(rec, rec, func(name string) bool { return name == "MSG" })
	lx.Feed([]byte("MSG hello world\n"))
	lx.Finish()
	assert.Equal(t, []string{"str:MSG", "str:hello world", "eos"}, rec.events)
}

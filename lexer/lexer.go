package lexer

// RawPredicate decides whether a command name takes a Raw argument mode
// (the whole remainder of the line is one free-form value, e.g. M117 or
// ECHO). A nil predicate falls back to DefaultRawCommands.
type RawPredicate func(name string) bool

// DefaultRawCommands recognizes the two raw commands this dialect names
// explicitly. A dialect loaded from configuration overrides this with
// its own list; see the dialect package.
func DefaultRawCommands(name string) bool {
	return name == "M117" || name == "ECHO"
}

type argMode uint8

const (
	modeNone argMode = iota
	modeRaw
	modeTraditional
	modeExtended
	modeBare
)

type state uint8

const (
	sLinePrefix state = iota
	sLineNumber
	sCommandName
	sArgsSkipWS
	sTraditionalKey
	sTraditionalMaybeEquals
	sExtendedKey
	sSegmentStart
	sValueRawRun
	sComment
	sScanError
	sNumber
	sString
	sExprDispatch
	sExprIdentifier
	sExprPendingOp
	sChecksum
)

// Lexer is an incremental, byte-at-a-time scanner. Every exported method
// may suspend between any two input bytes; nothing about chunk
// boundaries affects the tokens produced.
//
// A Lexer is not safe for concurrent use.
type Lexer struct {
	tokens Sink
	errs   ErrorSink
	isRaw  RawPredicate

	state state
	line  int
	col   int

	buf []byte // generic token-text accumulator, reset with buf[:0]

	mode      argMode
	haveToken bool // at least one token emitted so far this statement
	segStart  bool // true if current field's next segment is its first
	inExpr    bool // true while inside a brace expression's token stream
	stop      bool // soft-abort: true once ErrorSink.OnError returned false

	num numScan
	str strScan
	xpr exprScan

	// afterExpr remembers which segment-producing context invoked a
	// bridged {...}, so closing it resumes in the right place.
	afterExpr state
	// strReturn remembers where to resume once a string literal's
	// closing quote is seen.
	strReturn state
}

// New constructs a Lexer that reports tokens to tokens and diagnostics to
// errs. If isRaw is nil, DefaultRawCommands is used.
func New(tokens Sink, errs ErrorSink, isRaw RawPredicate) *Lexer {
	if isRaw == nil {
		isRaw = DefaultRawCommands
	}
	lx := &Lexer{tokens: tokens, errs: errs, isRaw: isRaw}
	lx.Reset()
	return lx
}

// Reset discards any partially scanned token and returns the lexer to
// line 1, column 1, as if freshly constructed.
func (lx *Lexer) Reset() {
	lx.state = sLinePrefix
	lx.line = 1
	lx.col = 1
	lx.buf = lx.buf[:0]
	lx.mode = modeNone
	lx.haveToken = false
	lx.segStart = true
	lx.inExpr = false
	lx.stop = false
	lx.num = numScan{}
	lx.str = strScan{}
	lx.xpr = exprScan{}
}

// Feed processes data incrementally, suspending between any two bytes.
// Calling Feed with successive slices of a logical input is equivalent to
// calling it once with the concatenation, except across a soft-abort: a
// false return from ErrorSink.OnError only cuts the current Feed call
// short, so Feed clears the flag on entry and a later call resumes
// normally.
func (lx *Lexer) Feed(data []byte) {
	lx.stop = false
	for _, b := range data {
		if lx.stop {
			return
		}
		lx.step(b)
	}
}

// Finish signals end of input. If a statement is mid-flight, it behaves
// as if a final newline had been fed — flushing any pending field and
// raising "unterminated" diagnostics for a dangling string or
// expression. A plain newline is silently absorbed inside a brace
// expression (a `{…}` is allowed to span physical lines), so
// an unclosed expression or string at true end-of-input is diagnosed
// here directly rather than by feeding a literal '\n' byte through the
// state machine. Finish is idempotent: calling it again after the first
// is a no-op because the statement was already flushed and the lexer
// returned to line-prefix state.
func (lx *Lexer) Finish() {
	if lx.stop || lx.state == sLinePrefix {
		return
	}
	switch {
	case lx.inExpr:
		lx.fail("unterminated expression")
		lx.flushDangling()
	case lx.state == sString:
		lx.fail("unterminated string literal")
		lx.flushDangling()
	default:
		lx.step('\n')
		if lx.state != sLinePrefix {
			lx.flushDangling()
		}
	}
}

// flushDangling forces a return to line-prefix, emitting EndOfStatement
// for whatever tokens are already buffered (if any remain — fail already
// aborts those via the Sink when it has seen at least one valid token).
func (lx *Lexer) flushDangling() {
	if lx.haveToken {
		lx.tokens.EndOfStatement(lx.line, lx.col)
	}
	lx.mode = modeNone
	lx.haveToken = false
	lx.segStart = true
	lx.inExpr = false
	lx.state = sLinePrefix
	lx.buf = lx.buf[:0]
}

func (lx *Lexer) step(b byte) {
	switch lx.state {
	case sLinePrefix:
		lx.stepLinePrefix(b)
	case sLineNumber:
		lx.stepLineNumber(b)
	case sCommandName:
		lx.stepCommandName(b)
	case sArgsSkipWS:
		lx.stepArgsSkipWS(b)
	case sTraditionalKey:
		lx.stepTraditionalKey(b)
	case sTraditionalMaybeEquals:
		lx.stepTraditionalMaybeEquals(b)
	case sExtendedKey:
		lx.stepExtendedKey(b)
	case sSegmentStart:
		lx.stepSegmentStart(b)
	case sValueRawRun:
		lx.stepValueRawRun(b)
	case sComment:
		lx.stepComment(b)
	case sScanError:
		lx.stepScanError(b)
	case sNumber:
		lx.stepNumber(b)
	case sString:
		lx.stepString(b)
	case sExprDispatch:
		lx.stepExprDispatch(b)
	case sExprIdentifier:
		lx.stepExprIdentifier(b)
	case sExprPendingOp:
		lx.stepExprPendingOp(b)
	case sChecksum:
		lx.stepChecksum(b)
	}
	lx.advancePos(b)
}

func (lx *Lexer) advancePos(b byte) {
	if b == '\n' {
		lx.line++
		lx.col = 1
		return
	}
	lx.col++
}

func (lx *Lexer) fail(msg string) {
	if lx.haveToken {
		lx.tokens.Abort(lx.line, lx.col)
		lx.haveToken = false
	}
	lx.inExpr = false
	if lx.errs != nil && !lx.errs.OnError(msg, lx.line, lx.col) {
		lx.stop = true
	}
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' }
func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' }
func isAlnum(b byte) bool { return isAlpha(b) || isDigit(b) }
func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// --- Line prefix: optional "N<digits>" line number, then either a
// command name, a bare leading expression, a comment, or a blank line.

func (lx *Lexer) stepLinePrefix(b byte) {
	switch {
	case isSpace(b):
		return
	case b == '\n':
		return // blank line; stays in line prefix
	case b == ';':
		lx.state = sComment
	case b == 'N' || b == 'n':
		lx.state = sLineNumber
	case b == '{':
		lx.beginStatement(modeBare)
		lx.enterExpr(sArgsSkipWS)
	case isAlpha(b):
		lx.beginStatement(modeNone)
		lx.buf = append(lx.buf, upper(b))
		lx.state = sCommandName
	default:
		lx.fail("disallowed character at start of line")
		lx.state = sScanError
	}
}

func (lx *Lexer) beginStatement(m argMode) {
	lx.mode = m
	lx.haveToken = false
	lx.segStart = true
}

func (lx *Lexer) stepLineNumber(b byte) {
	if isDigit(b) {
		return
	}
	lx.state = sLinePrefix
	lx.stepLinePrefix(b)
}

// --- Command name ---

func (lx *Lexer) stepCommandName(b byte) {
	if isAlnum(b) {
		lx.buf = append(lx.buf, upper(b))
		return
	}
	name := string(lx.buf)
	lx.buf = lx.buf[:0]
	lx.emitField(name)
	switch {
	case lx.isRaw(name):
		lx.mode = modeRaw
	case isTraditionalName(name):
		lx.mode = modeTraditional
	default:
		lx.mode = modeExtended
	}
	lx.segStart = true
	lx.state = sArgsSkipWS
	lx.stepArgsSkipWS(b)
}

// isTraditionalName reports whether name matches a single leading letter
// followed only by digits (G1, M104) — the TRADITIONAL argument-mode rule.
func isTraditionalName(name string) bool {
	if len(name) < 2 {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isDigit(name[i]) {
			return false
		}
	}
	return true
}

// --- Between fields: skip whitespace, detect end of statement or a
// trailing comment, otherwise dispatch to the next field per mode.

func (lx *Lexer) stepArgsSkipWS(b byte) {
	switch {
	case isSpace(b):
		return
	case b == ';':
		lx.state = sComment
	case b == '\n':
		lx.endStatement()
	case b == '*' && lx.mode != modeRaw:
		lx.beginChecksum()
	default:
		switch lx.mode {
		case modeRaw:
			lx.segStart = true
			lx.state = sSegmentStart
			lx.stepSegmentStart(b)
		case modeTraditional:
			lx.buf = lx.buf[:0]
			lx.state = sTraditionalKey
			lx.stepTraditionalKey(b)
		case modeExtended, modeBare:
			lx.buf = lx.buf[:0]
			lx.state = sExtendedKey
			lx.stepExtendedKey(b)
		default:
			lx.fail("unexpected character")
			lx.state = sScanError
		}
	}
}

func (lx *Lexer) endStatement() {
	if lx.haveToken {
		lx.tokens.EndOfStatement(lx.line, lx.col)
	}
	lx.mode = modeNone
	lx.haveToken = false
	lx.state = sLinePrefix
}

// --- TRADITIONAL: single-letter key, optional '=', then a value segment ---

func (lx *Lexer) stepTraditionalKey(b byte) {
	switch b {
	case '"':
		lx.beginString(sTraditionalMaybeEquals)
	case '{':
		lx.enterExpr(sTraditionalMaybeEquals)
	default:
		lx.emitField(string(upper(b)))
		lx.state = sTraditionalMaybeEquals
	}
}

func (lx *Lexer) stepTraditionalMaybeEquals(b byte) {
	lx.segStart = true
	lx.state = sSegmentStart
	if b == '=' {
		return
	}
	lx.stepSegmentStart(b)
}

// --- EXTENDED: KEY=VALUE. modeBare (a leading bare {expr} statement)
// reuses this path for any field that isn't itself a leading brace. ---

func (lx *Lexer) stepExtendedKey(b byte) {
	if isAlnum(b) {
		lx.buf = append(lx.buf, b)
		return
	}
	if b != '=' {
		lx.fail("EXTENDED argument missing '='")
		lx.state = sScanError
		lx.stepScanError(b)
		return
	}
	lx.emitField(string(lx.buf))
	lx.buf = lx.buf[:0]
	lx.segStart = true
	lx.state = sSegmentStart
}

// --- Value segments shared by TRADITIONAL values, EXTENDED values, and
// the RAW command's single whole-line field. ---

func isValueTerminator(b byte) bool {
	return b == '\n' || isSpace(b)
}

func (lx *Lexer) stepSegmentStart(b byte) {
	switch {
	case lx.mode == modeRaw && b == '\n':
		lx.finishEmptySegmentIfNone()
		lx.state = sArgsSkipWS
		lx.stepArgsSkipWS(b)
	case lx.mode != modeRaw && isValueTerminator(b):
		lx.finishEmptySegmentIfNone()
		lx.state = sArgsSkipWS
		lx.stepArgsSkipWS(b)
	case b == '{':
		lx.enterExpr(sSegmentStart)
	case b == '"':
		lx.beginString(sSegmentStart)
	case lx.mode != modeRaw && b == '*':
		lx.beginChecksum()
	case lx.mode != modeRaw && isDigit(b):
		lx.beginNumber(b)
	default:
		lx.buf = lx.buf[:0]
		lx.buf = append(lx.buf, b)
		lx.state = sValueRawRun
	}
}

// finishEmptySegmentIfNone emits an empty string value for a field whose
// value was entirely absent (as in "G1 X\n").
func (lx *Lexer) finishEmptySegmentIfNone() {
	if lx.segStart {
		lx.emitString("")
	}
}

func (lx *Lexer) rawRunStop(b byte) bool {
	if lx.mode == modeRaw {
		return b == '\n' || b == '{' || b == '"'
	}
	return isValueTerminator(b) || b == '{' || b == '"'
}

func (lx *Lexer) stepValueRawRun(b byte) {
	if !lx.rawRunStop(b) {
		lx.buf = append(lx.buf, b)
		return
	}
	lx.emitString(string(lx.buf))
	lx.buf = lx.buf[:0]
	lx.state = sSegmentStart
	lx.stepSegmentStart(b)
}

// emitField emits v as a standalone statement field (a command name or an
// argument key) that never participates in bridging: TRADITIONAL and
// EXTENDED keys sit directly against their value with no whitespace yet
// are never concatenated with it ("X10" is two fields, a key and a
// value, not one bridged field).
func (lx *Lexer) emitField(v string) {
	lx.tokens.String(v, lx.line, lx.col)
	lx.haveToken = true
}

// emitString emits v as the next segment of the current value, prefixing
// a Bridge token if a prior segment already started this same value.
// Bridging only applies outside an expression: operands inside {...} are
// never field segments, just ordinary expression tokens.
func (lx *Lexer) emitString(v string) {
	lx.emitBridgeIfNeeded()
	lx.tokens.String(v, lx.line, lx.col)
	lx.haveToken = true
}

func (lx *Lexer) emitInt(v int64) {
	lx.emitBridgeIfNeeded()
	lx.tokens.Integer(v, lx.line, lx.col)
	lx.haveToken = true
}

func (lx *Lexer) emitFloat(v float64) {
	lx.emitBridgeIfNeeded()
	lx.tokens.Float(v, lx.line, lx.col)
	lx.haveToken = true
}

func (lx *Lexer) emitBridgeIfNeeded() {
	if lx.inExpr {
		return
	}
	if !lx.segStart {
		lx.tokens.Bridge(lx.line, lx.col)
	}
	lx.segStart = false
}

// --- Checksum suffix: classic G-code senders may append "*nnn" after the
// last value on a line (e.g. "G1 X10*42"), a transport-level checksum with
// no bearing on the statement. It is recognized wherever a new value
// segment would otherwise start (TRADITIONAL/EXTENDED/bare modes only —
// RAW messages keep '*' as literal text) and silently discarded: no token
// is ever emitted for it, matching the line-number prefix's treatment. ---

func (lx *Lexer) beginChecksum() {
	lx.state = sChecksum
}

func (lx *Lexer) stepChecksum(b byte) {
	if isDigit(b) {
		return
	}
	switch {
	case b == '\n':
		lx.endStatement()
	case b == ';':
		lx.state = sComment
	case isSpace(b):
		lx.state = sArgsSkipWS
	default:
		lx.fail("malformed checksum suffix")
		lx.state = sScanError
		lx.stepScanError(b)
	}
}

// --- Comment: discard to end of line. ---

func (lx *Lexer) stepComment(b byte) {
	if b == '\n' {
		lx.endStatement()
	}
}

// --- Scan error recovery: discard to end of line, then resume as if the
// aborted statement had ended. ---

func (lx *Lexer) stepScanError(b byte) {
	if b == '\n' {
		lx.mode = modeNone
		lx.haveToken = false
		lx.state = sLinePrefix
	}
}

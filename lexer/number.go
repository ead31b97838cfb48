package lexer

import (
	"math/big"
	"strconv"
)

// numPhase tracks where a numeric literal scan stands: which radix was
// chosen and whether we're reading the integer part, the fractional
// part, or an exponent.
type numPhase uint8

const (
	numLeadZero numPhase = iota
	numDigits
	numFrac
	numExpSign
	numExpDigits
)

type numScan struct {
	buf     []byte
	phase   numPhase
	base    int // 10, 16, or 2; octal is a leading-zero decimal shape recognized via looksOctal, both mid-scan and at finalize time
	isFloat bool
	sawRun  bool // at least one digit seen in the current run (radix/frac/exp)
}

// beginNumber starts a numeric literal with its first digit already in
// hand, covering decimal/hex/binary/octal syntax and int64-overflow-to-float
// continuation.
func (lx *Lexer) beginNumber(b byte) {
	lx.num = numScan{buf: []byte{b}, base: 10}
	if b == '0' {
		lx.num.phase = numLeadZero
	} else {
		lx.num.phase = numDigits
		lx.num.sawRun = true
	}
	lx.state = sNumber
}

func (lx *Lexer) stepNumber(b byte) {
	switch lx.num.phase {
	case numLeadZero:
		lx.stepNumLeadZero(b)
	case numDigits:
		lx.stepNumDigits(b)
	case numFrac:
		lx.stepNumFrac(b)
	case numExpSign:
		lx.stepNumExpSign(b)
	case numExpDigits:
		lx.stepNumExpDigits(b)
	}
}

func (lx *Lexer) numDigitOK(b byte) bool {
	if lx.num.base == 16 {
		return isHexDigit(b)
	}
	return isDigit(b)
}

func (lx *Lexer) stepNumLeadZero(b byte) {
	switch {
	case b == 'x' || b == 'X':
		lx.num.buf = append(lx.num.buf, b)
		lx.num.base = 16
		lx.num.phase = numDigits
		lx.num.sawRun = false
	case b == 'b' || b == 'B':
		lx.num.buf = append(lx.num.buf, b)
		lx.num.base = 2
		lx.num.phase = numDigits
		lx.num.sawRun = false
	default:
		lx.num.phase = numDigits
		lx.num.sawRun = true // the leading '0' already seen counts as a digit
		lx.stepNumDigits(b)
	}
}

func (lx *Lexer) stepNumDigits(b byte) {
	if lx.numDigitOK(b) {
		lx.num.buf = append(lx.num.buf, b)
		lx.num.sawRun = true
		return
	}
	if lx.num.sawRun && isFractionIntroducer(b) {
		if kind, forbidden := lx.radixForbidsFraction(); forbidden {
			lx.fail("fractional " + kind + " literal")
			lx.state = sScanError
			lx.stepScanError(b)
			return
		}
	}
	switch {
	case b == '.' && lx.num.base != 2:
		lx.num.buf = append(lx.num.buf, b)
		lx.num.isFloat = true
		lx.num.phase = numFrac
		lx.num.sawRun = false
	case lx.num.base == 10 && (b == 'e' || b == 'E'):
		lx.num.buf = append(lx.num.buf, b)
		lx.num.isFloat = true
		lx.num.phase = numExpSign
		lx.num.sawRun = false
	case lx.num.base == 16 && (b == 'p' || b == 'P'):
		lx.num.buf = append(lx.num.buf, b)
		lx.num.isFloat = true
		lx.num.phase = numExpSign
		lx.num.sawRun = false
	default:
		if !lx.num.sawRun {
			lx.fail("numeric literal missing digits")
			lx.state = sScanError
			lx.stepScanError(b)
			return
		}
		lx.finalizeNumber(b)
	}
}

func (lx *Lexer) stepNumFrac(b byte) {
	if isDigit(b) {
		lx.num.buf = append(lx.num.buf, b)
		lx.num.sawRun = true
		return
	}
	switch {
	case lx.num.base == 10 && (b == 'e' || b == 'E'):
		lx.num.buf = append(lx.num.buf, b)
		lx.num.phase = numExpSign
		lx.num.sawRun = false
	case lx.num.base == 16 && (b == 'p' || b == 'P'):
		lx.num.buf = append(lx.num.buf, b)
		lx.num.phase = numExpSign
		lx.num.sawRun = false
	case lx.num.base == 16:
		// Hex floats require a mandatory exponent; a bare "0x1.8" is
		// incomplete.
		lx.fail("hex float literal requires a 'p' exponent")
		lx.state = sScanError
		lx.stepScanError(b)
	default:
		lx.finalizeNumber(b)
	}
}

func (lx *Lexer) stepNumExpSign(b byte) {
	if b == '+' || b == '-' {
		lx.num.buf = append(lx.num.buf, b)
		lx.num.phase = numExpDigits
		return
	}
	if isDigit(b) {
		lx.num.buf = append(lx.num.buf, b)
		lx.num.phase = numExpDigits
		lx.num.sawRun = true
		return
	}
	lx.fail("empty exponent")
	lx.state = sScanError
	lx.stepScanError(b)
}

func (lx *Lexer) stepNumExpDigits(b byte) {
	if isDigit(b) {
		lx.num.buf = append(lx.num.buf, b)
		lx.num.sawRun = true
		return
	}
	if !lx.num.sawRun {
		lx.fail("empty exponent")
		lx.state = sScanError
		lx.stepScanError(b)
		return
	}
	lx.finalizeNumber(b)
}

// finalizeNumber converts the accumulated text and emits the resulting
// literal, then reconsumes the terminating byte in whichever context
// requested the number (field value or expression operand).
func (lx *Lexer) finalizeNumber(terminator byte) {
	text := string(lx.num.buf)
	switch {
	case lx.num.isFloat:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			lx.fail("invalid numeric literal")
			lx.state = sScanError
			lx.stepScanError(terminator)
			return
		}
		lx.emitFloat(v)
	case lx.num.base == 16 || lx.num.base == 2:
		v, err := strconv.ParseInt(text, 0, 64)
		if err == nil {
			lx.emitInt(v)
		} else if lx.num.base == 16 {
			f, ok := parseHexIntAsFloat(text)
			if !ok {
				lx.fail("numeric literal overflow")
				lx.state = sScanError
				lx.stepScanError(terminator)
				return
			}
			lx.emitFloat(f)
		} else {
			lx.fail("numeric literal overflow")
			lx.state = sScanError
			lx.stepScanError(terminator)
			return
		}
	default:
		// Decimal, with Go's base-0 auto-detection treating a leading
		// "0" plus digits as legacy octal.
		v, err := strconv.ParseInt(text, 0, 64)
		if err == nil {
			lx.emitInt(v)
		} else if looksOctal(text) {
			lx.fail("numeric literal overflow")
			lx.state = sScanError
			lx.stepScanError(terminator)
			return
		} else {
			f, ferr := strconv.ParseFloat(text, 64)
			if ferr != nil {
				lx.fail("invalid numeric literal")
				lx.state = sScanError
				lx.stepScanError(terminator)
				return
			}
			lx.emitFloat(f)
		}
	}
	if lx.state != sScanError {
		if lx.inExpr {
			lx.state = sExprDispatch
			lx.stepExprDispatch(terminator)
		} else {
			lx.state = sSegmentStart
			lx.stepSegmentStart(terminator)
		}
	}
}

func looksOctal(text string) bool {
	return len(text) > 1 && text[0] == '0' && text[1] != 'x' && text[1] != 'X' && text[1] != 'b' && text[1] != 'B'
}

// isFractionIntroducer reports whether b could start a fractional or
// exponent continuation of a numeric literal: '.', 'e'/'E', or 'p'/'P'.
func isFractionIntroducer(b byte) bool {
	switch b {
	case '.', 'e', 'E', 'p', 'P':
		return true
	default:
		return false
	}
}

// radixForbidsFraction reports whether the literal scanned so far (its
// digits already in lx.num.buf) can never legally take a fractional point
// or exponent marker: true binary literals, and decimal-looking literals
// whose leading-zero shape marks them as legacy octal, matching
// looksOctal's own definition. Hex (base 16) and plain decimal are never
// forbidden here; their '.'/'e'/'p' continuations are handled by the
// normal float-syntax cases in stepNumDigits.
func (lx *Lexer) radixForbidsFraction() (string, bool) {
	switch {
	case lx.num.base == 2:
		return "binary", true
	case lx.num.base == 10 && looksOctal(string(lx.num.buf)):
		return "octal", true
	default:
		return "", false
	}
}

func parseHexIntAsFloat(text string) (float64, bool) {
	bf, _, err := big.ParseFloat(text, 0, 53, big.ToNearestEven)
	if err != nil {
		return 0, false
	}
	f, _ := bf.Float64()
	return f, true
}

package collab

import (
	"fmt"
	"math"
)

// DefaultBuiltins returns the small arithmetic function table the demo CLI
// and tests register with an Evaluator by default: abs, min, and max, the
// handful of scalar math helpers an expression language over numbers
// actually needs, in the signature style of a scripting language's math
// builtins (one function per Value, numeric-only).
func DefaultBuiltins() []*Builtin {
	return []*Builtin{
		{Name: "abs", Callback: builtinAbs},
		{Name: "min", Callback: builtinMin},
		{Name: "max", Callback: builtinMax},
	}
}

func builtinAbs(args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("abs: expected 1 argument, got %d", len(args))
	}
	if i, ok := args[0].(Integer); ok {
		if i.V < 0 {
			return Integer{-i.V}, nil
		}
		return i, nil
	}
	f, ok := asFloat(args[0])
	if !ok {
		return nil, fmt.Errorf("abs: numeric argument required, got %v", args[0].Kind())
	}
	return Float{math.Abs(f)}, nil
}

func builtinMin(args []Value) (Value, error) {
	return reduceNumeric("min", args, func(a, b float64) bool { return a < b })
}

func builtinMax(args []Value) (Value, error) {
	return reduceNumeric("max", args, func(a, b float64) bool { return a > b })
}

// reduceNumeric folds args down to the one whose float64 value wins
// against better(candidate, current), preserving Integer-ness only when
// every argument is an Integer.
func reduceNumeric(name string, args []Value, better func(a, b float64) bool) (Value, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: expected at least 1 argument", name)
	}
	best := args[0]
	bestF, ok := asFloat(best)
	if !ok {
		return nil, fmt.Errorf("%s: numeric argument required, got %v", name, best.Kind())
	}
	allInt := best.Kind() == KInt
	for _, a := range args[1:] {
		f, ok := asFloat(a)
		if !ok {
			return nil, fmt.Errorf("%s: numeric argument required, got %v", name, a.Kind())
		}
		if a.Kind() != KInt {
			allInt = false
		}
		if better(f, bestF) {
			best, bestF = a, f
		}
	}
	if allInt {
		return best, nil
	}
	return Float{bestF}, nil
}

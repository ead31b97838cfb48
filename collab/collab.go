// Package collab implements the three collaborator interfaces a motion
// runtime needs to actually execute parsed statements — Lookup,
// Serializer, and Exec — plus a reference Evaluator that walks a
// Statement's AST using them. The lexer/parser/ast packages have no
// dependency on this package; it is the optional interpreter layered on
// top, used here only to prove the AST shape is consumable and to back
// the demo CLI.
package collab

import (
	"fmt"
	"math"

	"github.com/mbctl/gcodefe/ast"
)

// Lookup resolves a Parameter reference to a runtime Value. parent is the
// already-evaluated left-hand side for `a.b`/`a[b]` chains, or nil for a
// bare top-level parameter. key is a String for the dotted form (a.b) and
// an arbitrary evaluated Value for the bracketed form (a[b]).
type Lookup interface {
	Lookup(parent Value, key Value) (Value, error)
}

// Serializer renders a named set of values back to text. It is not
// invoked by Evaluator itself — callers use it however their
// surrounding system wants a rendered statement (logging, echoing, wire
// replay) — but is declared here because the AST's field model is what
// it serializes.
type Serializer interface {
	Serialize(dict map[string]Value) (string, error)
}

// Exec carries out one fully-evaluated statement. fields holds every
// statement field's evaluated Value in source order (command name
// first).
type Exec interface {
	Exec(fields []Value) (bool, error)
}

// Builtin is a named callable usable from a Function-call expression
// (`name(args...)`).
type Builtin struct {
	Name     string
	Callback func(args []Value) (Value, error)
}

// Evaluator walks ast.Tree nodes to Values, resolving Parameter references
// through Lookup and Function calls through a Builtin table.
type Evaluator struct {
	tree     *ast.Tree
	lookup   Lookup
	builtins map[string]*Builtin
}

// NewEvaluator returns an Evaluator over tree, resolving parameters via
// lookup and functions via builtins (nil is treated as empty).
func NewEvaluator(tree *ast.Tree, lookup Lookup, builtins []*Builtin) *Evaluator {
	table := make(map[string]*Builtin, len(builtins))
	for _, b := range builtins {
		table[b.Name] = b
	}
	return &Evaluator{tree: tree, lookup: lookup, builtins: table}
}

// EvalStatement evaluates every field of the Statement at root, in order,
// and hands the resulting Values to exec.Exec.
func (e *Evaluator) EvalStatement(root ast.Ref, exec Exec) (bool, error) {
	if e.tree.Kind(root) != ast.KStatement {
		return false, fmt.Errorf("EvalStatement: root is not a Statement")
	}
	var fields []Value
	for c := e.tree.Child(root); c.Valid(); c = e.tree.Next(c) {
		v, err := e.Eval(c)
		if err != nil {
			return false, err
		}
		fields = append(fields, v)
	}
	return exec.Exec(fields)
}

// Eval evaluates a single expression node (anything but KStatement) to a
// Value.
func (e *Evaluator) Eval(r ast.Ref) (Value, error) {
	t := e.tree
	switch t.Kind(r) {
	case ast.KInteger:
		return Integer{t.Int(r)}, nil
	case ast.KFloat:
		return Float{t.Float(r)}, nil
	case ast.KBool:
		return Bool{t.Bool(r)}, nil
	case ast.KString:
		return String{t.Str(r)}, nil
	case ast.KParameter:
		if e.lookup == nil {
			return nil, fmt.Errorf("parameter %q: no lookup collaborator configured", t.Str(r))
		}
		return e.lookup.Lookup(nil, String{t.Str(r)})
	case ast.KOperator:
		return e.evalOperator(r)
	case ast.KFunction:
		return e.evalFunction(r)
	default:
		return nil, fmt.Errorf("cannot evaluate node kind %v", t.Kind(r))
	}
}

func (e *Evaluator) evalFunction(r ast.Ref) (Value, error) {
	t := e.tree
	name := t.Str(r)
	b, ok := e.builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	var args []Value
	for c := t.Child(r); c.Valid(); c = t.Next(c) {
		v, err := e.Eval(c)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return b.Callback(args)
}

func (e *Evaluator) evalOperator(r ast.Ref) (Value, error) {
	t := e.tree
	op := t.Op(r)
	children := t.Children(r)

	switch op {
	case ast.OpNeg:
		v, err := e.Eval(children[0])
		if err != nil {
			return nil, err
		}
		return negate(v)
	case ast.OpNot:
		v, err := e.Eval(children[0])
		if err != nil {
			return nil, err
		}
		b, ok := truthy(v)
		if !ok {
			return nil, fmt.Errorf("! requires a bool operand, got %v", v.Kind())
		}
		return Bool{!b}, nil
	case ast.OpIfElse:
		left, err := e.Eval(children[0])
		if err != nil {
			return nil, err
		}
		cond, err := e.Eval(children[1])
		if err != nil {
			return nil, err
		}
		right, err := e.Eval(children[2])
		if err != nil {
			return nil, err
		}
		b, ok := truthy(cond)
		if !ok {
			return nil, fmt.Errorf("if/else condition must be bool, got %v", cond.Kind())
		}
		if b {
			return left, nil
		}
		return right, nil
	case ast.OpLookup:
		left, err := e.Eval(children[0])
		if err != nil {
			return nil, err
		}
		var key Value
		if t.Kind(children[1]) == ast.KParameter {
			key = String{t.Str(children[1])}
		} else {
			key, err = e.Eval(children[1])
			if err != nil {
				return nil, err
			}
		}
		if e.lookup == nil {
			return nil, fmt.Errorf("lookup %v[%v]: no lookup collaborator configured", left, key)
		}
		return e.lookup.Lookup(left, key)
	}

	left, err := e.Eval(children[0])
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(children[1])
	if err != nil {
		return nil, err
	}
	return evalBinary(op, left, right)
}

// evalBinary implements the two-operand operators. Integer op Integer
// stays Integer (division and modulo truncate toward zero), except that
// ** with a negative exponent yields Float; any Float operand promotes
// both sides to Float.
func evalBinary(op ast.OpKind, left, right Value) (Value, error) {
	if op == ast.OpConcat {
		return String{left.String() + right.String()}, nil
	}
	if op == ast.OpAnd || op == ast.OpOr {
		lb, lok := truthy(left)
		rb, rok := truthy(right)
		if !lok || !rok {
			return nil, fmt.Errorf("%v requires bool operands, got %v and %v", op, left.Kind(), right.Kind())
		}
		if op == ast.OpAnd {
			return Bool{lb && rb}, nil
		}
		return Bool{lb || rb}, nil
	}
	if op == ast.OpEquals {
		return Bool{valuesEqual(left, right)}, nil
	}

	li, lIsInt := left.(Integer)
	ri, rIsInt := right.(Integer)
	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if !lok || !rok {
		return nil, fmt.Errorf("%v requires numeric operands, got %v and %v", op, left.Kind(), right.Kind())
	}

	switch op {
	case ast.OpAdd:
		if lIsInt && rIsInt {
			return Integer{li.V + ri.V}, nil
		}
		return Float{lf + rf}, nil
	case ast.OpSub:
		if lIsInt && rIsInt {
			return Integer{li.V - ri.V}, nil
		}
		return Float{lf - rf}, nil
	case ast.OpMul:
		if lIsInt && rIsInt {
			return Integer{li.V * ri.V}, nil
		}
		return Float{lf * rf}, nil
	case ast.OpDiv:
		if lIsInt && rIsInt {
			if ri.V == 0 {
				return nil, fmt.Errorf("integer division by zero")
			}
			return Integer{li.V / ri.V}, nil
		}
		return Float{lf / rf}, nil
	case ast.OpMod:
		if lIsInt && rIsInt {
			if ri.V == 0 {
				return nil, fmt.Errorf("integer division by zero")
			}
			return Integer{li.V % ri.V}, nil
		}
		return nil, fmt.Errorf("%% requires integer operands, got %v and %v", left.Kind(), right.Kind())
	case ast.OpPow:
		if lIsInt && rIsInt && ri.V >= 0 {
			base, exp, result := li.V, ri.V, int64(1)
			for exp > 0 {
				if exp&1 == 1 {
					result *= base
				}
				base *= base
				exp >>= 1
			}
			return Integer{result}, nil
		}
		return Float{math.Pow(lf, rf)}, nil
	case ast.OpLt:
		return Bool{lf < rf}, nil
	case ast.OpGt:
		return Bool{lf > rf}, nil
	case ast.OpLte:
		return Bool{lf <= rf}, nil
	case ast.OpGte:
		return Bool{lf >= rf}, nil
	default:
		return nil, fmt.Errorf("unsupported operator %v", op)
	}
}

func negate(v Value) (Value, error) {
	switch t := v.(type) {
	case Integer:
		return Integer{-t.V}, nil
	case Float:
		return Float{-t.V}, nil
	default:
		return nil, fmt.Errorf("unary - requires a numeric operand, got %v", v.Kind())
	}
}

func valuesEqual(left, right Value) bool {
	if lf, lok := asFloat(left); lok {
		if rf, rok := asFloat(right); rok {
			return lf == rf
		}
	}
	if ls, ok := left.(String); ok {
		if rs, ok := right.(String); ok {
			return ls.V == rs.V
		}
	}
	if lb, ok := left.(Bool); ok {
		if rb, ok := right.(Bool); ok {
			return lb.V == rb.V
		}
	}
	return false
}

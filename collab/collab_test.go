package collab

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbctl/gcodefe/ast"
	"github.com/mbctl/gcodefe/frontend"
)

// parseField feeds src (a single statement) through a Frontend and returns
// the Tree plus the Ref of the statement's nth field (0-indexed).
func parseField(t *testing.T, src string, n int) (*ast.Tree, ast.Ref) {
	t.Helper()
	var tree *ast.Tree
	var root ast.Ref
	f := frontend.New(func(tr *ast.Tree, r ast.Ref) {
		tree = tr
		root = r
	}, nil)
	f.Feed([]byte(src))
	f.Finish()
	require.Empty(t, f.Diagnostics())
	require.True(t, root.Valid())

	c := tree.Child(root)
	for i := 0; i < n; i++ {
		c = tree.Next(c)
	}
	require.True(t, c.Valid())
	return tree, c
}

func TestEvaluator_ArithmeticPrecedence(t *testing.T) {
	tests := []struct {
		src      string
		expected int64
	}{
		{"G1 X{1+2*3}\n", 7},
		{"G1 X{(1+2)*3}\n", 9},
		{"G1 X{10-3-2}\n", 5},
		{"G1 X{2**3}\n", 8},
		{"G1 X{7%3}\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tree, field := parseField(t, tt.src, 2)
			ev := NewEvaluator(tree, nil, nil)
			v, err := ev.Eval(field)
			require.NoError(t, err)
			i, ok := v.(Integer)
			require.True(t, ok, "expected Integer, got %T", v)
			assert.Equal(t, tt.expected, i.V)
			assert.Equal(t, fmt.Sprintf("%d", tt.expected), v.String())
		})
	}
}

func TestEvaluator_FloatPromotion(t *testing.T) {
	tree, field := parseField(t, "G1 X{1+2.5}\n", 2)
	ev := NewEvaluator(tree, nil, nil)
	v, err := ev.Eval(field)
	require.NoError(t, err)
	f, ok := v.(Float)
	require.True(t, ok)
	assert.Equal(t, 3.5, f.V)
}

func TestEvaluator_Ternary(t *testing.T) {
	tree, field := parseField(t, "G1 X{1 if 2 < 3 else 4}\n", 2)
	ev := NewEvaluator(tree, nil, nil)
	v, err := ev.Eval(field)
	require.NoError(t, err)
	assert.Equal(t, Integer{1}, v)
}

func TestEvaluator_Concat(t *testing.T) {
	tree, field := parseField(t, `G1 X{"ab" ~ "cd"}` + "\n", 2)
	ev := NewEvaluator(tree, nil, nil)
	v, err := ev.Eval(field)
	require.NoError(t, err)
	assert.Equal(t, String{"abcd"}, v)
}

func TestEvaluator_BridgedFieldIsConcat(t *testing.T) {
	tree, field := parseField(t, `ECHO hello {1} world`+"\n", 1)
	ev := NewEvaluator(tree, nil, nil)
	v, err := ev.Eval(field)
	require.NoError(t, err)
	assert.Equal(t, "hello 1 world", v.String())
}

type mapLookup map[string]Value

func (m mapLookup) Lookup(parent Value, key Value) (Value, error) {
	if parent != nil {
		return nil, fmt.Errorf("unexpected parent lookup in test fixture")
	}
	k, ok := key.(String)
	if !ok {
		return nil, fmt.Errorf("lookup key must be a string, got %T", key)
	}
	v, ok := m[k.V]
	if !ok {
		return nil, fmt.Errorf("undefined parameter %q", k.V)
	}
	return v, nil
}

func TestEvaluator_ParameterLookup(t *testing.T) {
	tree, field := parseField(t, "G1 X{feedrate}\n", 2)
	lookup := mapLookup{"feedrate": Integer{3000}}
	ev := NewEvaluator(tree, lookup, nil)
	v, err := ev.Eval(field)
	require.NoError(t, err)
	assert.Equal(t, Integer{3000}, v)
}

func TestEvaluator_ParameterLookupMissingErrors(t *testing.T) {
	tree, field := parseField(t, "G1 X{undefined_var}\n", 2)
	ev := NewEvaluator(tree, nil, nil)
	_, err := ev.Eval(field)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no lookup collaborator configured")
}

func TestEvaluator_FunctionCall(t *testing.T) {
	tree, field := parseField(t, "G1 X{max(1, 7, 3)}\n", 2)
	builtins := []*Builtin{
		{Name: "max", Callback: func(args []Value) (Value, error) {
			best := args[0].(Integer)
			for _, a := range args[1:] {
				if i := a.(Integer); i.V > best.V {
					best = i
				}
			}
			return best, nil
		}},
	}
	ev := NewEvaluator(tree, nil, builtins)
	v, err := ev.Eval(field)
	require.NoError(t, err)
	assert.Equal(t, Integer{7}, v)
}

func TestEvaluator_UnknownFunctionErrors(t *testing.T) {
	tree, field := parseField(t, "G1 X{bogus(1)}\n", 2)
	ev := NewEvaluator(tree, nil, nil)
	_, err := ev.Eval(field)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown function "bogus"`)
}

type recordingExec struct {
	fields []Value
}

func (r *recordingExec) Exec(fields []Value) (bool, error) {
	r.fields = fields
	return true, nil
}

func TestEvaluator_EvalStatementHandsFieldsToExec(t *testing.T) {
	var tree *ast.Tree
	var root ast.Ref
	f := frontend.New(func(tr *ast.Tree, r ast.Ref) {
		tree = tr
		root = r
	}, nil)
	f.Feed([]byte("G1 X{1+2} Y3\n"))
	f.Finish()
	require.Empty(t, f.Diagnostics())

	ev := NewEvaluator(tree, nil, nil)
	exec := &recordingExec{}
	ok, err := ev.EvalStatement(root, exec)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, exec.fields, 5)
	assert.Equal(t, String{"G1"}, exec.fields[0])
	assert.Equal(t, String{"X"}, exec.fields[1])
	assert.Equal(t, Integer{3}, exec.fields[2])
	assert.Equal(t, String{"Y"}, exec.fields[3])
}

func TestEvaluator_EvalStatementRejectsNonStatementRoot(t *testing.T) {
	tree, field := parseField(t, "G1 X1\n", 1)
	ev := NewEvaluator(tree, nil, nil)
	_, err := ev.EvalStatement(field, &recordingExec{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a Statement")
}

type joiningSerializer struct{}

func (joiningSerializer) Serialize(dict map[string]Value) (string, error) {
	return fmt.Sprintf("%v=%v", dict["key"], dict["value"]), nil
}

func TestSerializer_Smoke(t *testing.T) {
	var s Serializer = joiningSerializer{}
	out, err := s.Serialize(map[string]Value{"key": String{"X"}, "value": Integer{10}})
	require.NoError(t, err)
	assert.Equal(t, "X=10", out)
}

func TestEvaluator_DivisionByZero(t *testing.T) {
	tree, field := parseField(t, "G1 X{1/0}\n", 2)
	ev := NewEvaluator(tree, nil, nil)
	_, err := ev.Eval(field)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
}

func TestEvaluator_ComparisonAndLogic(t *testing.T) {
	tree, field := parseField(t, "G1 X{1 < 2 and 3 > 2}\n", 2)
	ev := NewEvaluator(tree, nil, nil)
	v, err := ev.Eval(field)
	require.NoError(t, err)
	assert.Equal(t, Bool{true}, v)
}

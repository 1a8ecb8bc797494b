package engine

import (
	"cmp"
	"fmt"
	"math"
	"reflect"

	"github.com/wippyai/irflow/errors"
	"github.com/wippyai/irflow/ir"
)

// coerce converts x to the canonical representation of t.
func coerce(t ir.Type, x any) any {
	x = ir.NormalizeConst(x)
	if t == ir.Float {
		if i, ok := x.(int64); ok {
			return float64(i)
		}
	}
	return x
}

func asBool(node string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errors.TypeMismatch(errors.PhaseRuntime, nil, node, "bool", typeName(v))
	}
	return b, nil
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}

func numbers(a, b any) (x, y float64, ok bool) {
	switch a := a.(type) {
	case int64:
		switch b := b.(type) {
		case int64:
			return float64(a), float64(b), true
		case float64:
			return float64(a), b, true
		}
	case float64:
		switch b := b.(type) {
		case int64:
			return a, float64(b), true
		case float64:
			return a, b, true
		}
	}
	return 0, 0, false
}

func binary(op ir.BinaryOp, a, b any) (any, error) {
	switch op {
	case ir.OpEq:
		return equal(a, b), nil
	case ir.OpNe:
		return !equal(a, b), nil
	case ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe:
		c, err := compare(op, a, b)
		if err != nil {
			return nil, err
		}
		switch op {
		case ir.OpLt:
			return c < 0, nil
		case ir.OpLe:
			return c <= 0, nil
		case ir.OpGt:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	}

	if op == ir.OpAdd {
		if s, ok := a.(string); ok {
			if t, ok := b.(string); ok {
				return s + t, nil
			}
		}
	}

	ia, aInt := a.(int64)
	ib, bInt := b.(int64)
	if aInt && bInt {
		switch op {
		case ir.OpAdd:
			return ia + ib, nil
		case ir.OpSub:
			return ia - ib, nil
		case ir.OpMul:
			return ia * ib, nil
		case ir.OpDiv, ir.OpMod:
			if ib == 0 {
				return nil, errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
					Node(op.String()).
					Detail("integer division by zero").
					Build()
			}
			if op == ir.OpDiv {
				return ia / ib, nil
			}
			return ia % ib, nil
		}
	}

	x, y, ok := numbers(a, b)
	if !ok {
		return nil, operandMismatch(op.String(), a, b)
	}
	switch op {
	case ir.OpAdd:
		return x + y, nil
	case ir.OpSub:
		return x - y, nil
	case ir.OpMul:
		return x * y, nil
	case ir.OpDiv:
		return x / y, nil
	case ir.OpMod:
		return math.Mod(x, y), nil
	}
	return nil, errors.Unsupported(errors.PhaseRuntime, "operator "+op.String())
}

func compare(op ir.BinaryOp, a, b any) (int, error) {
	if x, ok := a.(int64); ok {
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, y), nil
		}
	}
	if x, y, ok := numbers(a, b); ok {
		return cmp.Compare(x, y), nil
	}
	if s, ok := a.(string); ok {
		if t, ok := b.(string); ok {
			return cmp.Compare(s, t), nil
		}
	}
	return 0, operandMismatch(op.String(), a, b)
}

// equal compares values, treating integers and floats as one numeric domain.
// Values of incomparable types are never equal.
func equal(a, b any) bool {
	if x, ok := a.(int64); ok {
		if y, ok := b.(int64); ok {
			return x == y
		}
	}
	if x, y, ok := numbers(a, b); ok {
		return x == y
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func unary(op ir.UnaryOp, x any) (any, error) {
	if op == ir.OpNot {
		b, err := asBool("!", x)
		if err != nil {
			return nil, err
		}
		return !b, nil
	}
	switch v := x.(type) {
	case int64:
		return -v, nil
	case float64:
		return -v, nil
	}
	return nil, errors.TypeMismatch(errors.PhaseRuntime, nil, "-", "number", typeName(x))
}

func operandMismatch(op string, a, b any) error {
	return errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
		Node(op).
		Type(typeName(a) + ", " + typeName(b)).
		Detail("operands are not compatible").
		Build()
}

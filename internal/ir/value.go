package ir

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IRValue is a sealed interface representing the constant values an
// expression graph may carry.
// Only IRNull, IRString, IRInt, IRBool, and IRArray implement this.
// NO IRFloat - floats are not representable in constants, which keeps
// diagnostic output and SQL parameters deterministic.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents a null constant.
type IRNull struct{}

func (IRNull) irValue() {}

// IRString represents a string constant.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer constant.
// Always int64, never float64.
type IRInt int64

func (IRInt) irValue() {}

// IRBool represents a boolean constant.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents an ordered list of constants (e.g. the right-hand side
// of a containment check).
type IRArray []IRValue

func (IRArray) irValue() {}

// NewIRString creates an IRString value.
func NewIRString(s string) IRString {
	return IRString(s)
}

// NewIRInt creates an IRInt value.
func NewIRInt(n int64) IRInt {
	return IRInt(n)
}

// NewIRBool creates an IRBool value.
func NewIRBool(b bool) IRBool {
	return IRBool(b)
}

// NewIRArray creates an IRArray from values.
func NewIRArray(vals ...IRValue) IRArray {
	return IRArray(vals)
}

// Format renders a value using the diagnostic formatting convention:
// strings are Go-quoted, null renders as "null", arrays as {a, b}.
func Format(v IRValue) string {
	switch val := v.(type) {
	case nil, IRNull:
		return "null"
	case IRString:
		return strconv.Quote(string(val))
	case IRInt:
		return strconv.FormatInt(int64(val), 10)
	case IRBool:
		return strconv.FormatBool(bool(val))
	case IRArray:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = Format(elem)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FromGo converts a decoded document value (YAML or CUE) into an IRValue.
// Integral floats are accepted because some decoders produce float64 for
// every number; fractional values are rejected.
func FromGo(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case int:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("number out of int64 range: %d", val)
		}
		return IRInt(val), nil
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("floats are not allowed in constants: %v", val)
		}
		return IRInt(int64(val)), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", v)
	}
}

// ToParam converts an IRValue to a Go native type usable as a SQL parameter.
// Arrays are not directly supported as SQL parameters.
func ToParam(v IRValue) (any, error) {
	switch val := v.(type) {
	case IRString:
		return string(val), nil
	case IRInt:
		return int64(val), nil
	case IRBool:
		return bool(val), nil
	case IRNull:
		return nil, nil
	case IRArray:
		return nil, fmt.Errorf("IRArray cannot be used as SQL parameter directly")
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}

package ir

import (
	"fmt"
	"sync"
)

// Type is the static result type carried by every node.
type Type uint8

const (
	Void Type = iota
	Bool
	Int
	Float
	String
	Error
	Any
	Func
	Task
	Locker
	AsyncLocker
)

var typeNames = [...]string{
	Void:        "void",
	Bool:        "bool",
	Int:         "int",
	Float:       "float",
	String:      "string",
	Error:       "error",
	Any:         "any",
	Func:        "func",
	Task:        "task",
	Locker:      "locker",
	AsyncLocker: "async-locker",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	return int(t) < len(typeNames)
}

// Zero returns the default value of t.
func (t Type) Zero() any {
	switch t {
	case Bool:
		return false
	case Int:
		return int64(0)
	case Float:
		return float64(0)
	case String:
		return ""
	default:
		return nil
	}
}

// Assignable reports whether a value of type src may be stored where dst is expected.
func (t Type) Assignable(src Type) bool {
	if t == src || t == Any {
		return true
	}
	return t == Float && src == Int
}

// TypeOf infers the IR type of a Go value.
func TypeOf(v any) Type {
	switch v.(type) {
	case nil:
		return Any
	case bool:
		return Bool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return Int
	case float32, float64:
		return Float
	case string:
		return String
	case error:
		return Error
	case Callable:
		return Func
	case sync.Locker:
		return Locker
	default:
		return Any
	}
}

// NormalizeConst converts Go numeric values to the engine's canonical
// int64/float64 representation.
func NormalizeConst(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

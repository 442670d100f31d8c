package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ValueKind tags which payload of a Value is meaningful.
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueText
	ValueNumber
	ValueBool
	ValueDate
	ValueOption
	ValueList
)

func (k ValueKind) String() string {
	switch k {
	case ValueText:
		return "text"
	case ValueNumber:
		return "number"
	case ValueBool:
		return "boolean"
	case ValueDate:
		return "date"
	case ValueOption:
		return "option"
	case ValueList:
		return "list"
	default:
		return "null"
	}
}

// ParseValueKind is the inverse of ValueKind.String.
func ParseValueKind(s string) (ValueKind, error) {
	switch s {
	case "null", "":
		return ValueNull, nil
	case "text":
		return ValueText, nil
	case "number":
		return ValueNumber, nil
	case "boolean":
		return ValueBool, nil
	case "date":
		return ValueDate, nil
	case "option":
		return ValueOption, nil
	case "list":
		return ValueList, nil
	}
	return ValueNull, fmt.Errorf("unknown value kind %q", s)
}

// Value is a tagged union holding one typed answer or operand.
// The zero Value is null.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []string
}

func Null() Value              { return Value{} }
func Text(s string) Value      { return Value{kind: ValueText, str: s} }
func Number(f float64) Value   { return Value{kind: ValueNumber, num: f} }
func Bool(b bool) Value        { return Value{kind: ValueBool, b: b} }
func Date(s string) Value      { return Value{kind: ValueDate, str: s} }
func Choice(code string) Value { return Value{kind: ValueOption, str: code} }

// List builds a multi-value answer from option codes.
func List(items ...string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: ValueList, list: cp}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == ValueNull }

// Items returns a copy of the elements of a list value.
func (v Value) Items() []string {
	if v.kind != ValueList {
		return nil
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp
}

// Truthy is the boolean coercion used by conditions.
func (v Value) Truthy() bool {
	switch v.kind {
	case ValueBool:
		return v.b
	case ValueNumber:
		return v.num != 0
	case ValueText, ValueDate, ValueOption:
		return v.str != ""
	case ValueList:
		return len(v.list) > 0
	default:
		return false
	}
}

// Float is the numeric coercion used by conditions. ok is false when coercion fails.
func (v Value) Float() (f float64, ok bool) {
	switch v.kind {
	case ValueNumber:
		return v.num, true
	case ValueBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case ValueText, ValueOption:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsString is the string coercion used by conditions. Null has no string form.
func (v Value) AsString() (string, bool) {
	switch v.kind {
	case ValueText, ValueDate, ValueOption:
		return v.str, true
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64), true
	case ValueBool:
		return strconv.FormatBool(v.b), true
	case ValueList:
		return strings.Join(v.list, ","), true
	default:
		return "", false
	}
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// AsTime parses date values and date-like text.
func (v Value) AsTime() (time.Time, bool) {
	if v.kind != ValueDate && v.kind != ValueText {
		return time.Time{}, false
	}
	s := strings.TrimSpace(v.str)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Interface returns the plain Go value for presentation.
func (v Value) Interface() any {
	switch v.kind {
	case ValueText, ValueDate, ValueOption:
		return v.str
	case ValueNumber:
		return v.num
	case ValueBool:
		return v.b
	case ValueList:
		return v.Items()
	default:
		return nil
	}
}

func (v Value) String() string {
	s, ok := v.AsString()
	if !ok {
		return "<null>"
	}
	return s
}

// Equal reports structural equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueNumber:
		return v.num == o.num
	case ValueBool:
		return v.b == o.b
	case ValueList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	default:
		return v.str == o.str
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Encode returns the storage form of v: its kind name and a canonical text payload.
func (v Value) Encode() (kind string, raw string, err error) {
	switch v.kind {
	case ValueList:
		b, err := json.Marshal(v.list)
		if err != nil {
			return "", "", fmt.Errorf("encode list value: %w", err)
		}
		return v.kind.String(), string(b), nil
	case ValueNull:
		return v.kind.String(), "", nil
	default:
		s, _ := v.AsString()
		return v.kind.String(), s, nil
	}
}

// DecodeValue is the inverse of Value.Encode.
func DecodeValue(kind, raw string) (Value, error) {
	k, err := ParseValueKind(kind)
	if err != nil {
		return Null(), err
	}
	switch k {
	case ValueText:
		return Text(raw), nil
	case ValueDate:
		return Date(raw), nil
	case ValueOption:
		return Choice(raw), nil
	case ValueNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Null(), fmt.Errorf("decode number value %q: %w", raw, err)
		}
		return Number(f), nil
	case ValueBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Null(), fmt.Errorf("decode boolean value %q: %w", raw, err)
		}
		return Bool(b), nil
	case ValueList:
		var items []string
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return Null(), fmt.Errorf("decode list value: %w", err)
		}
		return List(items...), nil
	default:
		return Null(), nil
	}
}

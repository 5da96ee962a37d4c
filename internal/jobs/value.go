package jobs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Value is a tagged variant for structured job fields. It serializes as a
// single-key JSON object naming the variant, e.g. {"list":[{"string":"x"}]}.
type Value struct {
	kind Kind
	b    bool
	i    int64
	s    string
	list []Value
	m    map[string]Value
}

// ErrInvalidValue reports a JSON object that is not a well-formed Value.
var ErrInvalidValue = errors.New("invalid stored value")

func Bool(v bool) Value     { return Value{kind: KindBool, b: v} }
func Int(v int64) Value     { return Value{kind: KindInt, i: v} }
func String(v string) Value { return Value{kind: KindString, s: v} }

// List builds a list value. A nil slice yields an empty list.
func List(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{kind: KindList, list: out}
}

// Strings builds a list of string values.
func Strings(items []string) Value {
	out := make([]Value, len(items))
	for i, item := range items {
		out[i] = String(item)
	}
	return Value{kind: KindList, list: out}
}

// Map builds a map value. A nil map yields an empty map.
func Map(entries map[string]Value) Value {
	out := make(map[string]Value, len(entries))
	for k, v := range entries {
		out[k] = v
	}
	return Value{kind: KindMap, m: out}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

func (v Value) AsMap() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// AsStrings returns the list's string members. It fails when the value is not
// a list or any member is not a string.
func (v Value) AsStrings() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	out := make([]string, 0, len(v.list))
	for _, item := range v.list {
		s, ok := item.AsString()
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// StringSet returns the list's string members as a set.
func (v Value) StringSet() (map[string]struct{}, bool) {
	items, ok := v.AsStrings()
	if !ok {
		return nil, false
	}
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set, true
}

// Equal reports structural equality. Empty and nil lists or maps are equal.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindString:
		return v.s == other.s
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(other.m) {
			return false
		}
		for k, item := range v.m {
			peer, ok := other.m[k]
			if !ok || !item.Equal(peer) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindString:
		return v.s
	case KindList:
		return fmt.Sprintf("%v", v.list)
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(' ')
			}
			fmt.Fprintf(&buf, "%s:%s", k, v.m[k])
		}
		buf.WriteByte('}')
		return buf.String()
	default:
		return "<invalid>"
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(map[string]bool{"bool": v.b})
	case KindInt:
		return json.Marshal(map[string]int64{"int": v.i})
	case KindString:
		return json.Marshal(map[string]string{"string": v.s})
	case KindList:
		list := v.list
		if list == nil {
			list = []Value{}
		}
		return json.Marshal(map[string][]Value{"list": list})
	case KindMap:
		m := v.m
		if m == nil {
			m = map[string]Value{}
		}
		return json.Marshal(map[string]map[string]Value{"map": m})
	default:
		return nil, fmt.Errorf("%w: cannot encode zero Value", ErrInvalidValue)
	}
}

// UnmarshalJSON implements json.Unmarshaler. The object must carry exactly
// one known tag.
func (v *Value) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("%w: expected exactly one tag, got %d", ErrInvalidValue, len(tagged))
	}
	for tag, raw := range tagged {
		var err error
		switch tag {
		case "bool":
			var b bool
			err = json.Unmarshal(raw, &b)
			*v = Bool(b)
		case "int":
			var i int64
			err = json.Unmarshal(raw, &i)
			*v = Int(i)
		case "string":
			var s string
			err = json.Unmarshal(raw, &s)
			*v = String(s)
		case "list":
			var list []Value
			err = json.Unmarshal(raw, &list)
			if list == nil {
				list = []Value{}
			}
			*v = Value{kind: KindList, list: list}
		case "map":
			var m map[string]Value
			err = json.Unmarshal(raw, &m)
			if m == nil {
				m = map[string]Value{}
			}
			*v = Value{kind: KindMap, m: m}
		default:
			return fmt.Errorf("%w: unknown tag %q", ErrInvalidValue, tag)
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidValue, tag, err)
		}
	}
	return nil
}

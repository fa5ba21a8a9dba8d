// Package params models tool-call arguments as an explicit JSON variant and
// cleans them before they are forwarded upstream.
package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ErrInvalidJSON is returned by Parse for malformed input.
var ErrInvalidJSON = errors.New("invalid JSON")

// Field is one key of an object Value. Objects keep their fields in order.
type Field struct {
	Key   string
	Value Value
}

// Value is a JSON value. The zero Value is absent.
// Numbers keep their literal text so large integers survive a round trip.
type Value struct {
	kind   Kind
	b      bool
	num    string
	str    string
	items  []Value
	fields []Field
}

func Null() Value { return Value{kind: KindNull} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func String(s string) Value { return Value{kind: KindString, str: s} }
func Array(items ...Value) Value { return Value{kind: KindArray, items: items} }
func Object(fields ...Field) Value {
	return Value{kind: KindObject, fields: fields}
}

// Number builds a number from a float64.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: strconv.FormatFloat(f, 'f', -1, 64)}
}

// NumberLiteral builds a number from its JSON text. The literal is not validated.
func NumberLiteral(lit string) Value {
	return Value{kind: KindNumber, num: lit}
}

// F is shorthand for building object fields.
func F(key string, v Value) Field { return Field{Key: key, Value: v} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }
func (v Value) IsNullish() bool { return v.kind == KindAbsent || v.kind == KindNull }
func (v Value) Bool() bool { return v.b }
func (v Value) Str() string { return v.str }
func (v Value) Literal() string { return v.num }
func (v Value) Items() []Value { return v.items }
func (v Value) Fields() []Field { return v.fields }
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.fields)
	}
	return 0
}

// Float returns the numeric value, or 0 if v is not a parseable number.
func (v Value) Float() float64 {
	if v.kind != KindNumber {
		return 0
	}
	f, err := strconv.ParseFloat(v.num, 64)
	if err != nil {
		return 0
	}
	return f
}

// Get returns the first field named key, or an absent Value.
func (v Value) Get(key string) Value {
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value
		}
	}
	return Value{}
}

// Without returns a copy of object v minus the named keys.
func (v Value) Without(keys ...string) Value {
	if v.kind != KindObject {
		return v
	}
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	out := make([]Field, 0, len(v.fields))
	for _, f := range v.fields {
		if !drop[f.Key] {
			out = append(out, f)
		}
	}
	return Object(out...)
}

// Parse decodes JSON text, keeping object keys in document order.
func Parse(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return Value{}, ErrInvalidJSON
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

func fromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		if r.Raw == "" {
			return Value{}
		}
		return Null()
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.Number:
		return NumberLiteral(r.Raw)
	case gjson.String:
		return String(r.Str)
	}
	if r.IsArray() {
		items := []Value{}
		r.ForEach(func(_, item gjson.Result) bool {
			items = append(items, fromResult(item))
			return true
		})
		return Array(items...)
	}
	fields := []Field{}
	r.ForEach(func(key, val gjson.Result) bool {
		fields = append(fields, Field{Key: key.Str, Value: fromResult(val)})
		return true
	})
	return Object(fields...)
}

// FromAny converts a decoded encoding/json value. Map keys have no order, so
// they are sorted to keep the result deterministic.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case json.Number:
		return NumberLiteral(t.String())
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return NumberLiteral(strconv.Itoa(t))
	case int64:
		return NumberLiteral(strconv.FormatInt(t, 10))
	case json.RawMessage:
		v, err := Parse(t)
		if err != nil {
			return String(string(t))
		}
		return v
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return Array(items...)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, len(keys))
		for i, k := range keys {
			fields[i] = Field{Key: k, Value: FromAny(t[k])}
		}
		return Object(fields...)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return String(fmt.Sprint(t))
		}
		v, err := Parse(raw)
		if err != nil {
			return String(fmt.Sprint(t))
		}
		return v
	}
}

// MarshalJSON encodes v with object keys in their stored order.
// An absent Value encodes as null.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindAbsent, KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		buf.WriteString(v.num)
	case KindString:
		if err := encodeString(buf, v.str); err != nil {
			return err
		}
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, f.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("cannot encode %s", v.kind)
	}
	return nil
}

// Interface converts v to plain Go values (map[string]any, []any, float64, ...).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return json.Number(v.num)
	case KindString:
		return v.str
	case KindArray:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.fields))
		for _, f := range v.fields {
			out[f.Key] = f.Value.Interface()
		}
		return out
	}
	return nil
}

// Text renders a scalar the way it appears in a URL: strings unquoted,
// everything else as JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindAbsent, KindNull:
		return ""
	}
	raw, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(raw)
}

// Equal reports deep equality. Numbers compare by value.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.num == o.num || v.Float() == o.Float()
	case KindString:
		return v.str == o.str
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for i := range v.fields {
			if v.fields[i].Key != o.fields[i].Key || !v.fields[i].Value.Equal(o.fields[i].Value) {
				return false
			}
		}
		return true
	}
	return true
}

// encodeString writes s as a JSON string without escaping <, > and &.
func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

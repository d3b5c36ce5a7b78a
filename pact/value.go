// Package pact decodes the JSON payloads Chainweb transaction outputs
// carry: plain JSON with two recursively-applied tagged forms,
// {"decimal": "<string>"} and {"int": "<string>"}, that must rehydrate
// into exact numeric types rather than IEEE-754 floats.
package pact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind discriminates the tagged sum Value represents.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindBigInt // outside the int64 range; preserved as a decimal string
	KindDecimal
	KindString
	KindList
	KindMap
)

// Value is the heterogeneous element type of an event's params vector
// (and of any nested object inside it). Exactly one of the typed
// fields is meaningful, selected by Kind.
type Value struct {
	Kind    Kind
	Bool    bool
	Int     int64
	BigInt  string
	Decimal decimal.Decimal
	Str     string
	List    []Value
	Map     map[string]Value
}

// Anomaly describes one tagged-value decode that did not rehydrate as
// expected: the raw object was preserved (as an ordinary Map) rather
// than dropped, but a caller that wants spec.md's warn-level visibility
// into it should log Anomaly.Reason.
type Anomaly struct {
	Reason string
}

// Decode parses raw JSON, recursively rehydrating {"decimal": s} and
// {"int": s} tags at any depth. Untagged fractional number literals
// decode as decimals without an anomaly. Any tag whose payload fails
// to parse (or a number literal that parses as neither integer nor
// decimal) is reported as an Anomaly alongside the still-fully-populated
// Value; the anomalous node itself is preserved in raw map form, never
// dropped.
func Decode(raw []byte) (Value, []Anomaly, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return Value{}, nil, err
	}
	var anomalies []Anomaly
	val := fromAny(v, &anomalies)
	return val, anomalies, nil
}

func fromAny(v interface{}, anomalies *[]Anomaly) Value {
	switch x := v.(type) {
	case nil:
		return Value{Kind: KindNull}
	case bool:
		return Value{Kind: KindBool, Bool: x}
	case json.Number:
		return numberValue(x, anomalies)
	case string:
		return Value{Kind: KindString, Str: x}
	case []interface{}:
		list := make([]Value, len(x))
		for i, e := range x {
			list[i] = fromAny(e, anomalies)
		}
		return Value{Kind: KindList, List: list}
	case map[string]interface{}:
		return objectValue(x, anomalies)
	default:
		return Value{Kind: KindNull}
	}
}

// objectValue implements the "pact_hook": a single-key {"decimal": s}
// or {"int": s} object rehydrates; anything else (including a tagged
// object whose value fails to parse) is preserved as an ordinary map,
// with the parse failure recorded as an Anomaly.
func objectValue(x map[string]interface{}, anomalies *[]Anomaly) Value {
	if len(x) == 1 {
		if raw, ok := x["decimal"]; ok {
			if s, ok := raw.(string); ok {
				if d, err := decimal.NewFromString(s); err == nil {
					return Value{Kind: KindDecimal, Decimal: d}
				}
			}
			// Parse failure (or non-string payload): preserve the raw
			// object form rather than dropping the event.
			*anomalies = append(*anomalies, Anomaly{Reason: fmt.Sprintf("decimal tag with unparseable payload: %#v", raw)})
			return wrapMap(x, anomalies)
		}
		if raw, ok := x["int"]; ok {
			if s, ok := raw.(string); ok {
				return intValue(s, anomalies)
			}
			*anomalies = append(*anomalies, Anomaly{Reason: fmt.Sprintf("int tag with non-string payload: %#v", raw)})
			return wrapMap(x, anomalies)
		}
	}
	return wrapMap(x, anomalies)
}

func wrapMap(x map[string]interface{}, anomalies *[]Anomaly) Value {
	m := make(map[string]Value, len(x))
	for k, e := range x {
		m[k] = fromAny(e, anomalies)
	}
	return Value{Kind: KindMap, Map: m}
}

// numberValue routes a bare (untagged) JSON number: integer literals
// take the large-int downgrade path in intValue, anything with a
// fractional part or exponent (e.g. a bare 3.14 outside a {"decimal":
// ..} tag) decodes as an arbitrary-precision decimal, never an
// IEEE-754 float.
func numberValue(n json.Number, anomalies *[]Anomaly) Value {
	if i, err := n.Int64(); err == nil {
		return Value{Kind: KindInt, Int: i}
	}
	s := n.String()
	if isIntegerLiteral(s) {
		return intValue(s, anomalies)
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return Value{Kind: KindDecimal, Decimal: d}
	}
	*anomalies = append(*anomalies, Anomaly{Reason: fmt.Sprintf("number literal %q parsed as neither integer nor decimal", s)})
	return wrapMap(map[string]interface{}{"int": s}, anomalies)
}

func isIntegerLiteral(s string) bool {
	return !strings.ContainsAny(s, ".eE")
}

// intValue applies the large-int downgrade rule: values whose
// two's-complement width exceeds 64 bits (anything outside the int64
// range) are represented as a decimal string instead of a native
// integer, so no precision is lost crossing the language boundary.
func intValue(s string, anomalies *[]Anomaly) Value {
	bi, ok := new(big.Int).SetString(s, 10)
	if !ok {
		*anomalies = append(*anomalies, Anomaly{Reason: fmt.Sprintf("int tag with non-integer payload: %q", s)})
		return wrapMap(map[string]interface{}{"int": s}, anomalies)
	}
	if bi.BitLen() <= 64 {
		if bi.IsInt64() {
			return Value{Kind: KindInt, Int: bi.Int64()}
		}
	}
	return Value{Kind: KindBigInt, BigInt: bi.String()}
}

// Native converts a Value into plain Go types suitable for handing to
// a BSON/JSON marshaler: string, bool, nil, int64, string (big int or
// decimal), []interface{}, map[string]interface{}.
func (v Value) Native() interface{} {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindBigInt:
		return v.BigInt
	case KindDecimal:
		return v.Decimal.String()
	case KindString:
		return v.Str
	case KindList:
		out := make([]interface{}, len(v.List))
		for i, e := range v.List {
			out[i] = e.Native()
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.Map))
		for k, e := range v.Map {
			out[k] = e.Native()
		}
		return out
	default:
		return nil
	}
}

// Equal reports deep, exact equality, comparing decimals by value
// rather than by internal representation.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindInt:
		return v.Int == o.Int
	case KindBigInt:
		return v.BigInt == o.BigInt
	case KindDecimal:
		return v.Decimal.Equal(o.Decimal)
	case KindString:
		return v.Str == o.Str
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.Map) != len(o.Map) {
			return false
		}
		for k, e := range v.Map {
			oe, ok := o.Map[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

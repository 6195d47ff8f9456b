package script

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Kind identifies the type stored in a Value.
type Kind uint8

// Supported value kinds. The set is closed.
const (
	KindUnknown Kind = iota
	KindBoolean
	KindInteger
	KindNumber
	KindString
	KindEndpoint
	KindColor
)

// JSON class discriminators for composite kinds.
const (
	classEndpoint = "endpoint"
	classColor    = "color"
)

// String returns the protocol name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindEndpoint:
		return "endpoint"
	case KindColor:
		return "color"
	default:
		return "unknown"
	}
}

// ParseKind converts a protocol kind name into a Kind.
// Unrecognised names return KindUnknown.
func ParseKind(name string) Kind {
	switch name {
	case "boolean", "bool":
		return KindBoolean
	case "integer", "int":
		return KindInteger
	case "number", "float":
		return KindNumber
	case "string":
		return KindString
	case "endpoint":
		return KindEndpoint
	case "color", "colour":
		return KindColor
	default:
		return KindUnknown
	}
}

// Endpoint is a network host and port pair.
type Endpoint struct {
	Host string
	Port uint16
}

// String returns host:port.
func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Color is an 8-bit RGB triple.
type Color struct {
	R uint8
	G uint8
	B uint8
}

// String returns the colour as #rrggbb.
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Scalar is the set of Go types that map onto a value kind.
// It is the type witness used by the generic property and method constructors.
type Scalar interface {
	bool | int64 | float64 | string | Endpoint | Color
}

// Value is an immutable tagged value. The zero Value has KindUnknown.
//
// Typed accessors never fail: they return the zero value of the requested
// type when the stored kind differs.
type Value struct {
	kind     Kind
	boolean  bool
	integer  int64
	number   float64
	text     string
	endpoint Endpoint
	color    Color
}

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value { return Value{kind: KindBoolean, boolean: b} }

// IntValue returns an integer Value.
func IntValue(i int64) Value { return Value{kind: KindInteger, integer: i} }

// NumberValue returns a floating point Value.
func NumberValue(f float64) Value { return Value{kind: KindNumber, number: f} }

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{kind: KindString, text: s} }

// EndpointValue returns an endpoint Value.
func EndpointValue(host string, port uint16) Value {
	return Value{kind: KindEndpoint, endpoint: Endpoint{Host: host, Port: port}}
}

// ColorValue returns a colour Value.
func ColorValue(r, g, b uint8) Value {
	return Value{kind: KindColor, color: Color{R: r, G: g, B: b}}
}

// ValueOf wraps a scalar Go value in a Value of the matching kind.
func ValueOf[T Scalar](v T) Value {
	switch x := any(v).(type) {
	case bool:
		return BoolValue(x)
	case int64:
		return IntValue(x)
	case float64:
		return NumberValue(x)
	case string:
		return StringValue(x)
	case Endpoint:
		return Value{kind: KindEndpoint, endpoint: x}
	case Color:
		return Value{kind: KindColor, color: x}
	}
	return Value{}
}

// KindOf returns the kind that the Go type T maps onto.
func KindOf[T Scalar]() Kind {
	var zero T
	switch any(zero).(type) {
	case bool:
		return KindBoolean
	case int64:
		return KindInteger
	case float64:
		return KindNumber
	case string:
		return KindString
	case Endpoint:
		return KindEndpoint
	case Color:
		return KindColor
	}
	return KindUnknown
}

// As extracts the value as T. The second result is false, and the first is
// the zero T, when the stored kind does not match T.
func As[T Scalar](v Value) (T, bool) {
	var out T
	if v.kind != KindOf[T]() {
		return out, false
	}
	switch p := any(&out).(type) {
	case *bool:
		*p = v.boolean
	case *int64:
		*p = v.integer
	case *float64:
		*p = v.number
	case *string:
		*p = v.text
	case *Endpoint:
		*p = v.endpoint
	case *Color:
		*p = v.color
	}
	return out, true
}

// Kind returns the stored kind.
func (v Value) Kind() Kind { return v.kind }

// IsUnknown reports whether the value carries no data.
func (v Value) IsUnknown() bool { return v.kind == KindUnknown }

// AsBool returns the boolean, or false for other kinds.
func (v Value) AsBool() bool {
	if v.kind != KindBoolean {
		return false
	}
	return v.boolean
}

// AsInt returns the integer, or 0 for other kinds.
func (v Value) AsInt() int64 {
	if v.kind != KindInteger {
		return 0
	}
	return v.integer
}

// AsNumber returns the floating point number, or 0 for other kinds.
func (v Value) AsNumber() float64 {
	if v.kind != KindNumber {
		return 0
	}
	return v.number
}

// AsString returns the string, or "" for other kinds.
func (v Value) AsString() string {
	if v.kind != KindString {
		return ""
	}
	return v.text
}

// AsEndpoint returns the endpoint, or the zero Endpoint for other kinds.
func (v Value) AsEndpoint() Endpoint {
	if v.kind != KindEndpoint {
		return Endpoint{}
	}
	return v.endpoint
}

// AsColor returns the colour, or black for other kinds.
func (v Value) AsColor() Color {
	if v.kind != KindColor {
		return Color{}
	}
	return v.color
}

// Equal reports structural equality.
func (v Value) Equal(other Value) bool {
	return v == other
}

// String renders the value for logs.
func (v Value) String() string {
	switch v.kind {
	case KindBoolean:
		return strconv.FormatBool(v.boolean)
	case KindInteger:
		return strconv.FormatInt(v.integer, 10)
	case KindNumber:
		return strconv.FormatFloat(v.number, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.text)
	case KindEndpoint:
		return v.endpoint.String()
	case KindColor:
		return v.color.String()
	default:
		return "<unknown>"
	}
}

type endpointJSON struct {
	Class string `json:"_class"`
	Host  string `json:"host"`
	Port  uint16 `json:"port"`
}

type colorJSON struct {
	Class string `json:"_class"`
	R     uint8  `json:"r"`
	G     uint8  `json:"g"`
	B     uint8  `json:"b"`
}

// MarshalJSON implements json.Marshaler.
// Unknown values and non-finite numbers encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBoolean:
		return json.Marshal(v.boolean)
	case KindInteger:
		return json.Marshal(v.integer)
	case KindNumber:
		if math.IsNaN(v.number) || math.IsInf(v.number, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.number)
	case KindString:
		return json.Marshal(v.text)
	case KindEndpoint:
		return json.Marshal(endpointJSON{Class: classEndpoint, Host: v.endpoint.Host, Port: v.endpoint.Port})
	case KindColor:
		return json.Marshal(colorJSON{Class: classColor, R: v.color.R, G: v.color.G, B: v.color.B})
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
// Input that has no canonical Value shape decodes to the unknown Value.
func (v *Value) UnmarshalJSON(data []byte) error {
	*v = ParseValue(data, KindUnknown)
	return nil
}

// ParseValue decodes raw JSON into a Value.
//
// The hint resolves the one ambiguity of the JSON mapping: an integral JSON
// number decodes as KindInteger unless hint is KindNumber. Composite kinds
// require a matching "_class" field; anything malformed decodes to the
// unknown Value, which callers treat as absent. So does trailing data after
// the first JSON value.
func ParseValue(raw []byte, hint Kind) Value {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return Value{}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}
	}
	return fromDecoded(decoded, hint)
}

func fromDecoded(decoded any, hint Kind) Value {
	switch x := decoded.(type) {
	case bool:
		return BoolValue(x)
	case json.Number:
		return numberValue(x, hint)
	case string:
		return StringValue(x)
	case map[string]any:
		return objectValue(x)
	default:
		return Value{}
	}
}

func numberValue(n json.Number, hint Kind) Value {
	if hint != KindNumber {
		if i, err := n.Int64(); err == nil {
			return IntValue(i)
		}
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}
	}
	return NumberValue(f)
}

func objectValue(obj map[string]any) Value {
	class, _ := obj["_class"].(string)
	switch class {
	case classEndpoint:
		host, ok := obj["host"].(string)
		if !ok {
			return Value{}
		}
		port, ok := boundedUint(obj["port"], math.MaxUint16)
		if !ok {
			return Value{}
		}
		return EndpointValue(host, uint16(port))
	case classColor:
		r, okR := boundedUint(obj["r"], math.MaxUint8)
		g, okG := boundedUint(obj["g"], math.MaxUint8)
		b, okB := boundedUint(obj["b"], math.MaxUint8)
		if !okR || !okG || !okB {
			return Value{}
		}
		return ColorValue(uint8(r), uint8(g), uint8(b))
	default:
		return Value{}
	}
}

// boundedUint accepts a decoded JSON integer in [0, limit].
func boundedUint(raw any, limit uint64) (uint64, bool) {
	n, ok := raw.(json.Number)
	if !ok {
		return 0, false
	}
	i, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil || i > limit {
		return 0, false
	}
	return i, true
}

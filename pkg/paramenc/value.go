package paramenc

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/i2y/oapiquery/pkg/reqerrors"
)

// Field is one key/value pair of an ordered object.
type Field struct {
	Key   string
	Value any
}

// Object is a flat object whose field order is kept on the wire.
type Object []Field

// O builds an Object from alternating keys and values.
func O(kv ...any) Object {
	obj := make(Object, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		obj = append(obj, Field{Key: fmt.Sprint(kv[i]), Value: kv[i+1]})
	}
	return obj
}

// MarshalJSON writes the fields as a JSON object in order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type shape int

const (
	shapeScalar shape = iota
	shapeArray
	shapeObject
)

func (s shape) String() string {
	switch s {
	case shapeArray:
		return "array"
	case shapeObject:
		return "object"
	default:
		return "primitive"
	}
}

type pair struct {
	key   string
	value string
}

// value is a parameter flattened into strings.
type value struct {
	shape  shape
	scalar string
	items  []string
	fields []pair
}

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// Fields returns the top-level fields of an object-like value in wire order:
// Object order, sorted keys for string-keyed maps, declaration order for structs
// (json tag names honored). ok is false for anything else.
func Fields(v any) (Object, bool) {
	if obj, ok := v.(Object); ok {
		return obj, true
	}
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() || isPrimitive(rv) {
		return nil, false
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		obj := make(Object, 0, len(keys))
		for _, k := range keys {
			obj = append(obj, Field{Key: k, Value: rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()})
		}
		return obj, true
	case reflect.Struct:
		t := rv.Type()
		obj := make(Object, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := f.Name
			if tag, ok := f.Tag.Lookup("json"); ok {
				tagName, _, _ := strings.Cut(tag, ",")
				if tagName == "-" {
					continue
				}
				if tagName != "" {
					name = tagName
				}
			}
			obj = append(obj, Field{Key: name, Value: rv.Field(i).Interface()})
		}
		return obj, true
	}
	return nil, false
}

// flatten classifies v and renders every primitive with format.
func flatten(key string, v any, format func(string) string) (value, error) {
	if v == nil {
		return value{}, &reqerrors.EncodingError{Key: key, Message: "value cannot be nil"}
	}
	if s, ok, err := primitive(v); err != nil {
		return value{}, &reqerrors.EncodingError{Key: key, Cause: err}
	} else if ok {
		return value{shape: shapeScalar, scalar: format(s)}, nil
	}

	if obj, ok := Fields(v); ok {
		out := value{shape: shapeObject, fields: make([]pair, 0, len(obj))}
		for _, f := range obj {
			s, ok, err := primitive(f.Value)
			if err != nil {
				return value{}, &reqerrors.EncodingError{Key: key, Cause: err}
			}
			if !ok {
				return value{}, &reqerrors.EncodingError{Key: key, Message: fmt.Sprintf("field %q is not a primitive; nested structures are not supported", f.Key)}
			}
			out.fields = append(out.fields, pair{key: format(f.Key), value: format(s)})
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := value{shape: shapeArray, items: make([]string, 0, rv.Len())}
		for i := 0; i < rv.Len(); i++ {
			s, ok, err := primitive(rv.Index(i).Interface())
			if err != nil {
				return value{}, &reqerrors.EncodingError{Key: key, Cause: err}
			}
			if !ok {
				return value{}, &reqerrors.EncodingError{Key: key, Message: fmt.Sprintf("item %d is not a primitive; nested structures are not supported", i)}
			}
			out.items = append(out.items, format(s))
		}
		return out, nil
	}

	return value{}, &reqerrors.EncodingError{Key: key, Message: fmt.Sprintf("unsupported value type %T", v)}
}

// primitive renders scalars. ok is false for composite values.
func primitive(v any) (string, bool, error) {
	switch x := v.(type) {
	case nil:
		return "", false, fmt.Errorf("nil value")
	case string:
		return x, true, nil
	case []byte:
		return string(x), true, nil
	case bool:
		return strconv.FormatBool(x), true, nil
	case encoding.TextMarshaler:
		b, err := x.MarshalText()
		if err != nil {
			return "", false, err
		}
		return string(b), true, nil
	case fmt.Stringer:
		return x.String(), true, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false, fmt.Errorf("nil value")
		}
		return primitive(rv.Elem().Interface())
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true, nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), true, nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true, nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true, nil
	}
	return "", false, nil
}

var stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()

func isPrimitive(rv reflect.Value) bool {
	if rv.Type().Implements(textMarshalerType) || rv.Type().Implements(stringerType) {
		return true
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array, reflect.Interface, reflect.Func, reflect.Chan:
		return false
	}
	return true
}

// Escape percent-encodes s for a query string. Spaces become %20.
func Escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func pathEscape(s string) string {
	return url.PathEscape(s)
}

func verbatim(s string) string {
	return s
}

package paramenc

import (
	"fmt"
	"strings"

	"github.com/i2y/oapiquery/pkg/reqerrors"
)

// QueryForm encodes a query parameter in form style.
//
//	5            -> id=5
//	[3,4,5]      -> id=3,4,5          (explode: id=3&id=4&id=5)
//	{role:admin} -> id=role,admin     (explode: role=admin)
func QueryForm(key string, v any, explode bool) (string, error) {
	val, err := flatten(key, v, Escape)
	if err != nil {
		return "", withStyle(err, StyleForm)
	}
	k := Escape(key)
	switch val.shape {
	case shapeArray:
		if explode {
			return rekey(k, val.items), nil
		}
		return k + "=" + strings.Join(val.items, ","), nil
	case shapeObject:
		if explode {
			return joinPairs(val.fields, "=", "&"), nil
		}
		return k + "=" + joinPairs(val.fields, ",", ","), nil
	default:
		return k + "=" + val.scalar, nil
	}
}

// QuerySpaceDelimited encodes an array as id=3%204%205 (explode: id=3&id=4&id=5).
func QuerySpaceDelimited(key string, v any, explode bool) (string, error) {
	return delimited(key, v, explode, StyleSpaceDelimited, "%20")
}

// QueryPipeDelimited encodes an array as id=3|4|5 (explode: id=3&id=4&id=5).
func QueryPipeDelimited(key string, v any, explode bool) (string, error) {
	return delimited(key, v, explode, StylePipeDelimited, "|")
}

// QueryDeepObject encodes a flat object as id[role]=admin&id[firstName]=Alex.
// Only explode=true is defined for this style.
func QueryDeepObject(key string, v any, explode bool) (string, error) {
	val, err := flatten(key, v, Escape)
	if err != nil {
		return "", withStyle(err, StyleDeepObject)
	}
	if val.shape != shapeObject {
		return "", shapeMismatch(key, StyleDeepObject, "object", val.shape)
	}
	if !explode {
		return "", &reqerrors.EncodingError{Key: key, Style: string(StyleDeepObject), Message: "explode must be true"}
	}
	k := Escape(key)
	parts := make([]string, len(val.fields))
	for i, f := range val.fields {
		parts[i] = k + "[" + f.key + "]=" + f.value
	}
	return strings.Join(parts, "&"), nil
}

// EncodeQuery dispatches on the descriptor's effective style and explode flag.
func EncodeQuery(key string, v any, d Descriptor) (string, error) {
	explode := d.EffectiveExplode()
	switch style := d.EffectiveStyle(); style {
	case StyleForm:
		return QueryForm(key, v, explode)
	case StyleSpaceDelimited:
		return QuerySpaceDelimited(key, v, explode)
	case StylePipeDelimited:
		return QueryPipeDelimited(key, v, explode)
	case StyleDeepObject:
		return QueryDeepObject(key, v, explode)
	default:
		return "", &reqerrors.EncodingError{
			Key:     key,
			Style:   string(style),
			Message: `query style must be one of "form", "spaceDelimited", "pipeDelimited", "deepObject"`,
		}
	}
}

func delimited(key string, v any, explode bool, style Style, sep string) (string, error) {
	val, err := flatten(key, v, Escape)
	if err != nil {
		return "", withStyle(err, style)
	}
	if val.shape != shapeArray {
		return "", shapeMismatch(key, style, "array", val.shape)
	}
	k := Escape(key)
	if explode {
		return rekey(k, val.items), nil
	}
	return k + "=" + strings.Join(val.items, sep), nil
}

func rekey(key string, items []string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = key + "=" + item
	}
	return strings.Join(parts, "&")
}

func shapeMismatch(key string, style Style, want string, got shape) error {
	return &reqerrors.EncodingError{
		Key:     key,
		Style:   string(style),
		Message: fmt.Sprintf("value must be an %s, got %s", want, got),
	}
}

package paramenc

import (
	"strings"

	"github.com/i2y/oapiquery/pkg/reqerrors"
)

// PathSimple encodes a path parameter in simple style.
//
//	5            -> 5
//	[3,4,5]      -> 3,4,5
//	{role:admin} -> role,admin        (explode: role=admin)
func PathSimple(key string, v any, explode bool) (string, error) {
	val, err := flatten(key, v, pathEscape)
	if err != nil {
		return "", withStyle(err, StyleSimple)
	}
	return simple(val, explode), nil
}

// PathLabel encodes a path parameter in label style.
//
//	5            -> .5
//	[3,4,5]      -> .3,4,5            (explode: .3.4.5)
//	{role:admin} -> .role,admin       (explode: .role=admin)
func PathLabel(key string, v any, explode bool) (string, error) {
	val, err := flatten(key, v, pathEscape)
	if err != nil {
		return "", withStyle(err, StyleLabel)
	}
	switch val.shape {
	case shapeArray:
		if explode {
			return "." + strings.Join(val.items, "."), nil
		}
		return "." + strings.Join(val.items, ","), nil
	case shapeObject:
		if explode {
			return "." + joinPairs(val.fields, "=", "."), nil
		}
		return "." + joinPairs(val.fields, ",", ","), nil
	default:
		return "." + val.scalar, nil
	}
}

// PathMatrix encodes a path parameter in matrix style.
//
//	5            -> ;id=5
//	[3,4,5]      -> ;3,4,5            (explode: ;id=3;id=4;id=5)
//	{role:admin} -> id=role,admin     (explode: ;role=admin)
func PathMatrix(key string, v any, explode bool) (string, error) {
	val, err := flatten(key, v, pathEscape)
	if err != nil {
		return "", withStyle(err, StyleMatrix)
	}
	escapedKey := pathEscape(key)
	switch val.shape {
	case shapeArray:
		if !explode {
			return ";" + strings.Join(val.items, ","), nil
		}
		var b strings.Builder
		for _, item := range val.items {
			b.WriteString(";" + escapedKey + "=" + item)
		}
		return b.String(), nil
	case shapeObject:
		if explode {
			return ";" + joinPairs(val.fields, "=", ";"), nil
		}
		return escapedKey + "=" + joinPairs(val.fields, ",", ","), nil
	default:
		return ";" + escapedKey + "=" + val.scalar, nil
	}
}

// Placeholder returns the template token a descriptor expects, e.g. {;id*}.
func Placeholder(key string, style Style, explode bool) string {
	var prefix string
	switch style {
	case StyleLabel:
		prefix = "."
	case StyleMatrix:
		prefix = ";"
	}
	if explode {
		return "{" + prefix + key + "*}"
	}
	return "{" + prefix + key + "}"
}

// SubstitutePath encodes v with the descriptor's path style and writes it over
// the first matching placeholder in template. The styled token is tried first and
// the bare {key} form second; if neither appears the call fails.
func SubstitutePath(template, key string, v any, d Descriptor) (string, error) {
	style := d.EffectiveStyle()
	explode := d.EffectiveExplode()

	var encode func(string, any, bool) (string, error)
	switch style {
	case StyleSimple:
		encode = PathSimple
	case StyleLabel:
		encode = PathLabel
	case StyleMatrix:
		encode = PathMatrix
	default:
		return "", &reqerrors.EncodingError{Key: key, Style: string(style), Message: `path style must be one of "simple", "label", "matrix"`}
	}

	token := Placeholder(key, style, explode)
	if !strings.Contains(template, token) {
		token = "{" + key + "}"
		if !strings.Contains(template, token) {
			return "", &reqerrors.EncodingError{Key: key, Style: string(style), Message: "no placeholder for parameter in " + template}
		}
	}

	encoded, err := encode(key, v, explode)
	if err != nil {
		return "", err
	}
	return strings.Replace(template, token, encoded, 1), nil
}

func simple(val value, explode bool) string {
	switch val.shape {
	case shapeArray:
		return strings.Join(val.items, ",")
	case shapeObject:
		if explode {
			return joinPairs(val.fields, "=", ",")
		}
		return joinPairs(val.fields, ",", ",")
	default:
		return val.scalar
	}
}

func joinPairs(fields []pair, kv, sep string) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.key + kv + f.value
	}
	return strings.Join(parts, sep)
}

func withStyle(err error, style Style) error {
	if encErr, ok := err.(*reqerrors.EncodingError); ok && encErr.Style == "" {
		encErr.Style = string(style)
	}
	return err
}

package paramenc

import (
	"github.com/i2y/oapiquery/pkg/reqerrors"
)

// HeaderSimple encodes a header parameter value. Comma joining follows path
// simple style; nothing is escaped.
func HeaderSimple(key string, v any, explode bool) (string, error) {
	val, err := flatten(key, v, verbatim)
	if err != nil {
		return "", withStyle(err, StyleSimple)
	}
	return simple(val, explode), nil
}

// EncodeHeader dispatches on the descriptor's effective style.
func EncodeHeader(key string, v any, d Descriptor) (string, error) {
	if style := d.EffectiveStyle(); style != StyleSimple {
		return "", &reqerrors.EncodingError{Key: key, Style: string(style), Message: `header style must be "simple"`}
	}
	return HeaderSimple(key, v, d.EffectiveExplode())
}

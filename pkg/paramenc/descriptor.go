// Package paramenc serializes path, query and header parameter values according
// to the OpenAPI style and explode rules.
//
// Every encoder is a pure function of (key, value, explode). Accepted values are
// primitives, slices or arrays of primitives, and flat objects of primitives
// (Object, string-keyed maps, or structs). Nested structures are rejected with a
// *reqerrors.EncodingError naming the key.
//
// | Location | Styles                                        | Default style | Default explode |
// |----------|-----------------------------------------------|---------------|-----------------|
// | path     | simple, label, matrix                         | simple        | false           |
// | query    | form, spaceDelimited, pipeDelimited, deepObject | form        | true            |
// | header   | simple                                        | simple        | true            |
// | cookie   | form                                          | form          | false           |
package paramenc

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Location is where a parameter travels.
type Location string

const (
	LocationPath   Location = openapi3.ParameterInPath
	LocationQuery  Location = openapi3.ParameterInQuery
	LocationHeader Location = openapi3.ParameterInHeader
	LocationCookie Location = openapi3.ParameterInCookie
)

// Style is an OpenAPI serialization style.
type Style string

const (
	StyleSimple         Style = openapi3.SerializationSimple
	StyleLabel          Style = openapi3.SerializationLabel
	StyleMatrix         Style = openapi3.SerializationMatrix
	StyleForm           Style = openapi3.SerializationForm
	StyleSpaceDelimited Style = openapi3.SerializationSpaceDelimited
	StylePipeDelimited  Style = openapi3.SerializationPipeDelimited
	StyleDeepObject     Style = openapi3.SerializationDeepObject
)

// Descriptor is the serialization-relevant part of a parameter definition.
// Empty Style and nil Explode mean "use the location default".
type Descriptor struct {
	Name    string
	In      Location
	Style   Style
	Explode *bool
}

// FromParameter extracts a Descriptor from a kin-openapi parameter.
func FromParameter(p *openapi3.Parameter) Descriptor {
	return Descriptor{
		Name:    p.Name,
		In:      Location(p.In),
		Style:   Style(p.Style),
		Explode: p.Explode,
	}
}

// EffectiveStyle returns the declared style or the location default.
func (d Descriptor) EffectiveStyle() Style {
	if d.Style != "" {
		return d.Style
	}
	switch d.In {
	case LocationQuery, LocationCookie:
		return StyleForm
	default:
		return StyleSimple
	}
}

// EffectiveExplode returns the declared explode flag or the location default.
func (d Descriptor) EffectiveExplode() bool {
	if d.Explode != nil {
		return *d.Explode
	}
	switch d.In {
	case LocationQuery, LocationHeader:
		return true
	default:
		return false
	}
}

// Package validation holds per-operation validators consulted before a request
// is assembled. The capability is deliberately opaque: a Validator parses a value
// and either returns the value to send or an error.
package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/i2y/oapiquery/pkg/lookup"
	"github.com/i2y/oapiquery/pkg/paramenc"
)

// Validator parses a value, returning the value to use in its place.
type Validator interface {
	Parse(value any) (any, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(value any) (any, error)

// Parse calls f.
func (f ValidatorFunc) Parse(value any) (any, error) {
	return f(value)
}

// SchemaValidator checks values against a kin-openapi schema. Values are
// normalized through JSON before the check and returned unchanged.
type SchemaValidator struct {
	Schema *openapi3.Schema
}

// Parse implements Validator.
func (v SchemaValidator) Parse(value any) (any, error) {
	if v.Schema == nil {
		return value, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("value is not representable as JSON: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, err
	}
	if err := v.Schema.VisitJSON(normalized); err != nil {
		return nil, err
	}
	return value, nil
}

type operationKey struct {
	path   string
	method string
}

type operationValidators struct {
	body       map[string]Validator
	parameters map[paramenc.Location]map[string]Validator
}

// Registry maps (path, method) to body validators keyed by content type and
// parameter validators keyed by location and name. It is read-only once built.
type Registry struct {
	ops map[operationKey]*operationValidators
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ops: map[operationKey]*operationValidators{}}
}

func (r *Registry) operation(path, method string, create bool) *operationValidators {
	key := operationKey{path: path, method: strings.ToLower(method)}
	ov, ok := r.ops[key]
	if !ok && create {
		ov = &operationValidators{
			body:       map[string]Validator{},
			parameters: map[paramenc.Location]map[string]Validator{},
		}
		r.ops[key] = ov
	}
	return ov
}

// Body registers a request body validator.
func (r *Registry) Body(path, method, contentType string, v Validator) *Registry {
	r.operation(path, method, true).body[contentType] = v
	return r
}

// Parameter registers a parameter validator.
func (r *Registry) Parameter(path, method string, in paramenc.Location, name string, v Validator) *Registry {
	ov := r.operation(path, method, true)
	if ov.parameters[in] == nil {
		ov.parameters[in] = map[string]Validator{}
	}
	ov.parameters[in][name] = v
	return r
}

// BodyValidator returns the body validator for an operation and content type.
func (r *Registry) BodyValidator(path, method, contentType string) (Validator, bool) {
	ov := r.operation(path, method, false)
	if ov == nil {
		return nil, false
	}
	v, ok := ov.body[contentType]
	return v, ok
}

// ParameterValidators returns the validators of one location group.
func (r *Registry) ParameterValidators(path, method string, in paramenc.Location) (map[string]Validator, bool) {
	ov := r.operation(path, method, false)
	if ov == nil {
		return nil, false
	}
	group, ok := ov.parameters[in]
	return group, ok
}

// HasOperation reports whether anything is registered for (path, method).
func (r *Registry) HasOperation(path, method string) bool {
	return r.operation(path, method, false) != nil
}

// FromDocument derives schema validators for every parameter and request body
// media type that declares a schema. Operation parameters override path item
// parameters of the same name and location.
func FromDocument(ctx context.Context, doc *lookup.Document) (*Registry, error) {
	spec := doc.OpenAPI()
	if spec == nil {
		data, err := json.Marshal(doc.Root())
		if err != nil {
			return nil, fmt.Errorf("failed to serialize document tree: %w", err)
		}
		loader := openapi3.NewLoader()
		loader.Context = ctx
		if spec, err = loader.LoadFromData(data); err != nil {
			return nil, fmt.Errorf("failed to load document for validation: %w", err)
		}
	}

	reg := NewRegistry()
	if spec.Paths == nil {
		return reg, nil
	}
	for path, item := range spec.Paths.Map() {
		for method, op := range item.Operations() {
			for _, params := range []openapi3.Parameters{item.Parameters, op.Parameters} {
				for _, ref := range params {
					if ref == nil || ref.Value == nil || ref.Value.Schema == nil || ref.Value.Schema.Value == nil {
						continue
					}
					p := ref.Value
					reg.Parameter(path, method, paramenc.Location(p.In), p.Name, SchemaValidator{Schema: p.Schema.Value})
				}
			}
			if op.RequestBody == nil || op.RequestBody.Value == nil {
				continue
			}
			for contentType, mt := range op.RequestBody.Value.Content {
				if mt == nil || mt.Schema == nil || mt.Schema.Value == nil {
					continue
				}
				reg.Body(path, method, contentType, SchemaValidator{Schema: mt.Schema.Value})
			}
		}
	}
	return reg, nil
}

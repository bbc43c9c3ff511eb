// Package lookup resolves local $ref pointers and typed OpenAPI views out of a
// read-only document tree.
//
// The document is held as the generic JSON tree of the description so that any
// pointer of the form #/a/b/c can be walked, whatever object it targets. Typed
// views (path items, operations, parameters, request bodies, security schemes)
// are decoded from tree nodes into kin-openapi structs on demand. Nothing is
// cached between calls.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// Document is a read-only OpenAPI description addressable by local pointers.
// It is safe for concurrent use.
type Document struct {
	root map[string]any
	spec *openapi3.T
}

// NewDocument builds a Document from a kin-openapi model. The model is
// serialized once; references keep their $ref form in the tree.
func NewDocument(spec *openapi3.T) (*Document, error) {
	if spec == nil {
		return nil, fmt.Errorf("nil OpenAPI document")
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize OpenAPI document: %w", err)
	}
	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to decode OpenAPI document tree: %w", err)
	}
	return &Document{root: root, spec: spec}, nil
}

// Load parses a JSON or YAML description with the kin-openapi loader and wraps it.
func Load(ctx context.Context, data []byte) (*Document, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}
	return NewDocument(spec)
}

// FromTree wraps an already decoded JSON tree. The tree must not be modified
// afterwards.
func FromTree(root map[string]any) *Document {
	if root == nil {
		root = map[string]any{}
	}
	return &Document{root: root}
}

// Root returns the raw document tree.
func (d *Document) Root() map[string]any {
	return d.root
}

// OpenAPI returns the kin-openapi model the document was built from, or nil when
// it was built from a raw tree.
func (d *Document) OpenAPI() *openapi3.T {
	return d.spec
}

// decode converts a raw tree node into a typed view.
func decode(node any, out any) error {
	data, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

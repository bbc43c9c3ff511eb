package lookup

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/i2y/oapiquery/pkg/reqerrors"
)

// OperationContext is the resolved (path item, operation) pair for one call.
type OperationContext struct {
	Path      string
	Method    string
	PathItem  *openapi3.PathItem
	Operation *openapi3.Operation
	// RootSecurity holds the document level security requirements.
	RootSecurity openapi3.SecurityRequirements
}

// OperationInfo describes one operation for listings.
type OperationInfo struct {
	Path        string
	Method      string
	OperationID string
	Summary     string
}

var methodOrder = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// Operation resolves paths[path][method]. Method is matched case-insensitively.
func (d *Document) Operation(path, method string) (*OperationContext, error) {
	method = strings.ToLower(method)

	paths, _ := d.root["paths"].(map[string]any)
	rawItem, ok := paths[path]
	if !ok {
		return nil, &reqerrors.LookupError{Kind: reqerrors.KindPath, Key: path, Message: "path is not described"}
	}
	itemNode, err := d.Resolve(rawItem)
	if err != nil {
		return nil, err
	}
	itemMap, _ := itemNode.(map[string]any)
	rawOp, ok := itemMap[method]
	if !ok {
		return nil, &reqerrors.LookupError{Kind: reqerrors.KindMethod, Key: method, Message: "no operation on " + path}
	}

	var item openapi3.PathItem
	if err := decode(itemNode, &item); err != nil {
		return nil, malformed(reqerrors.KindPath, path, err)
	}
	var op openapi3.Operation
	if err := decode(rawOp, &op); err != nil {
		return nil, malformed(reqerrors.KindMethod, method, err)
	}
	security, err := d.RootSecurity()
	if err != nil {
		return nil, err
	}
	return &OperationContext{
		Path:         path,
		Method:       method,
		PathItem:     &item,
		Operation:    &op,
		RootSecurity: security,
	}, nil
}

// RootSecurity returns the document level security requirements.
func (d *Document) RootSecurity() (openapi3.SecurityRequirements, error) {
	raw, ok := d.root["security"]
	if !ok {
		return nil, nil
	}
	var reqs openapi3.SecurityRequirements
	if err := decode(raw, &reqs); err != nil {
		return nil, malformed(reqerrors.KindSecurity, "security", err)
	}
	return reqs, nil
}

// Parameter returns the parameter a ParameterRef points at.
func (d *Document) Parameter(ref *openapi3.ParameterRef) (*openapi3.Parameter, error) {
	if ref == nil {
		return nil, &reqerrors.LookupError{Kind: reqerrors.KindParameter, Message: "nil parameter"}
	}
	if ref.Ref == "" {
		if ref.Value == nil {
			return nil, &reqerrors.LookupError{Kind: reqerrors.KindParameter, Message: "parameter has neither $ref nor value"}
		}
		return ref.Value, nil
	}
	node, err := d.ResolvePointer(ref.Ref)
	if err != nil {
		return nil, err
	}
	var param openapi3.Parameter
	if err := decode(node, &param); err != nil {
		return nil, malformed(reqerrors.KindParameter, ref.Ref, err)
	}
	return &param, nil
}

// Parameters resolves every entry of a parameter list, keeping order.
func (d *Document) Parameters(params openapi3.Parameters) ([]*openapi3.Parameter, error) {
	out := make([]*openapi3.Parameter, 0, len(params))
	for _, ref := range params {
		p, err := d.Parameter(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// RequestBody returns the request body a RequestBodyRef points at.
func (d *Document) RequestBody(ref *openapi3.RequestBodyRef) (*openapi3.RequestBody, error) {
	if ref == nil {
		return nil, &reqerrors.LookupError{Kind: reqerrors.KindRequestBody, Message: "operation has no request body"}
	}
	if ref.Ref == "" {
		if ref.Value == nil {
			return nil, &reqerrors.LookupError{Kind: reqerrors.KindRequestBody, Message: "request body has neither $ref nor value"}
		}
		return ref.Value, nil
	}
	node, err := d.ResolvePointer(ref.Ref)
	if err != nil {
		return nil, err
	}
	var body openapi3.RequestBody
	if err := decode(node, &body); err != nil {
		return nil, malformed(reqerrors.KindRequestBody, ref.Ref, err)
	}
	return &body, nil
}

// SecurityScheme resolves components.securitySchemes[name]. A missing name is
// reported with ok=false and a nil error; callers decide whether that is fatal.
func (d *Document) SecurityScheme(name string) (*openapi3.SecurityScheme, bool, error) {
	components, _ := d.root["components"].(map[string]any)
	schemes, _ := components["securitySchemes"].(map[string]any)
	raw, ok := schemes[name]
	if !ok {
		return nil, false, nil
	}
	node, err := d.Resolve(raw)
	if err != nil {
		return nil, false, err
	}
	var scheme openapi3.SecurityScheme
	if err := decode(node, &scheme); err != nil {
		return nil, false, malformed(reqerrors.KindSecurity, name, err)
	}
	return &scheme, true, nil
}

// Operations lists every operation sorted by path, then by method.
func (d *Document) Operations() []OperationInfo {
	paths, _ := d.root["paths"].(map[string]any)
	keys := make([]string, 0, len(paths))
	for p := range paths {
		keys = append(keys, p)
	}
	sort.Strings(keys)

	var out []OperationInfo
	for _, p := range keys {
		node, err := d.Resolve(paths[p])
		if err != nil {
			continue
		}
		item, _ := node.(map[string]any)
		for _, m := range methodOrder {
			op, ok := item[m].(map[string]any)
			if !ok {
				continue
			}
			id, _ := op["operationId"].(string)
			summary, _ := op["summary"].(string)
			out = append(out, OperationInfo{Path: p, Method: m, OperationID: id, Summary: summary})
		}
	}
	return out
}

func malformed(kind, key string, err error) error {
	return &reqerrors.LookupError{Kind: kind, Key: key, Message: "malformed node", Cause: err}
}

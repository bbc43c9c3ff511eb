package lookup

import (
	"strconv"
	"strings"

	"github.com/i2y/oapiquery/pkg/reqerrors"
)

const refKey = "$ref"

// RefOf reports the pointer carried by a reference node.
func RefOf(node any) (string, bool) {
	m, ok := node.(map[string]any)
	if !ok {
		return "", false
	}
	ref, ok := m[refKey].(string)
	return ref, ok
}

// Resolve returns node unchanged unless it is a reference, in which case the
// reference chain is followed to the first non-reference node.
func (d *Document) Resolve(node any) (any, error) {
	ptr, ok := RefOf(node)
	if !ok {
		return node, nil
	}
	return d.ResolvePointer(ptr)
}

// ResolvePointer walks pointer and keeps following references until it reaches
// a terminal node. A pointer seen twice in the same chain is reported as a
// circular LookupError.
func (d *Document) ResolvePointer(pointer string) (any, error) {
	visited := make(map[string]struct{})
	for {
		if _, seen := visited[pointer]; seen {
			return nil, &reqerrors.LookupError{
				Kind:     reqerrors.KindReference,
				Pointer:  pointer,
				Circular: true,
			}
		}
		visited[pointer] = struct{}{}

		node, err := d.FollowPointer(pointer)
		if err != nil {
			return nil, err
		}
		next, ok := RefOf(node)
		if !ok {
			return node, nil
		}
		pointer = next
	}
}

// FollowPointer walks a single local pointer (#/seg1/seg2/...) from the document
// root without chasing a reference found at the target.
func (d *Document) FollowPointer(pointer string) (any, error) {
	if !strings.HasPrefix(pointer, "#/") {
		return nil, &reqerrors.LookupError{
			Kind:    reqerrors.KindReference,
			Pointer: pointer,
			Message: "not a local reference",
		}
	}

	segments := strings.Split(strings.TrimPrefix(pointer, "#/"), "/")
	current := any(d.root)
	for i, raw := range segments {
		segment := unescapePointer(raw)
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[segment]
			if !ok {
				return nil, unresolvable(pointer, segments[:i+1])
			}
			current = next
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(v) {
				return nil, unresolvable(pointer, segments[:i+1])
			}
			current = v[index]
		default:
			return nil, unresolvable(pointer, segments[:i+1])
		}
	}
	return current, nil
}

func unresolvable(pointer string, walked []string) error {
	return &reqerrors.LookupError{
		Kind:    reqerrors.KindReference,
		Pointer: pointer,
		Message: "segment not found: #/" + strings.Join(walked, "/"),
	}
}

// unescapePointer applies RFC 6901: ~1 is /, ~0 is ~.
func unescapePointer(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}

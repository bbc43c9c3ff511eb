// Package security walks the security requirements of a call and hands every
// referenced scheme to a caller-supplied Handler, which attaches credentials to
// the request context.
//
// Every scheme named in every requirement entry is invoked. Alternatives (OR)
// are not chosen between; a Handler that wants OR semantics needs to inspect
// Invocation.Requirement itself.
package security

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/i2y/oapiquery/pkg/reqerrors"
	"github.com/i2y/oapiquery/pkg/request"
)

// Invocation is one (scheme, scopes) pair taken from a requirement entry.
type Invocation struct {
	Scheme *openapi3.SecurityScheme
	Scopes []string
	// Name is the key of the scheme in components.securitySchemes.
	Name string
	// Requirement is the whole entry Name came from.
	Requirement openapi3.SecurityRequirement
}

// Handler applies one security scheme to a request context.
type Handler interface {
	HandleSecurity(inv Invocation, rc *request.Context) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(inv Invocation, rc *request.Context) error

// HandleSecurity calls f.
func (f HandlerFunc) HandleSecurity(inv Invocation, rc *request.Context) error {
	return f(inv, rc)
}

// SchemeResolver finds security schemes by name. *lookup.Document implements it.
type SchemeResolver interface {
	SecurityScheme(name string) (*openapi3.SecurityScheme, bool, error)
}

// Dispatcher runs the global and local security passes.
type Dispatcher struct {
	resolver       SchemeResolver
	throwOnMissing bool
	logger         *slog.Logger
}

// NewDispatcher creates a Dispatcher. With throwOnMissing unset, requirements
// naming an undefined scheme are skipped.
func NewDispatcher(resolver SchemeResolver, throwOnMissing bool, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		resolver:       resolver,
		throwOnMissing: throwOnMissing,
		logger:         logger.With("component", "security_dispatcher"),
	}
}

// Global applies the document level requirements.
func (d *Dispatcher) Global(rc *request.Context, h Handler) error {
	if h == nil || rc.Lookup == nil {
		return nil
	}
	return d.Apply(rc.Lookup.RootSecurity, rc, h)
}

// Local applies the operation level requirements.
func (d *Dispatcher) Local(rc *request.Context, h Handler) error {
	if h == nil || rc.Lookup == nil || rc.Lookup.Operation == nil || rc.Lookup.Operation.Security == nil {
		return nil
	}
	return d.Apply(*rc.Lookup.Operation.Security, rc, h)
}

// Apply invokes h for every scheme of every entry in reqs, entries in order and
// scheme names sorted within an entry.
func (d *Dispatcher) Apply(reqs openapi3.SecurityRequirements, rc *request.Context, h Handler) error {
	for _, entry := range reqs {
		names := make([]string, 0, len(entry))
		for name := range entry {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			scheme, ok, err := d.resolver.SecurityScheme(name)
			if err != nil {
				return err
			}
			if !ok {
				if d.throwOnMissing {
					return &reqerrors.LookupError{Kind: reqerrors.KindSecurity, Key: name, Message: "security scheme is not defined"}
				}
				d.logger.Debug("Skipping undefined security scheme", slog.String("scheme", name))
				continue
			}
			inv := Invocation{Scheme: scheme, Scopes: entry[name], Name: name, Requirement: entry}
			if err := h.HandleSecurity(inv, rc); err != nil {
				return fmt.Errorf("security handler for %q failed: %w", name, err)
			}
		}
	}
	return nil
}

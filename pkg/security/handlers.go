package security

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/i2y/oapiquery/pkg/paramenc"
	"github.com/i2y/oapiquery/pkg/request"
)

// Registry dispatches to a handler registered for the scheme name, falling back
// to one registered for the scheme type. Schemes with neither are skipped.
type Registry struct {
	byName map[string]Handler
	byType map[string]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: map[string]Handler{}, byType: map[string]Handler{}}
}

// ForScheme registers h for the scheme called name.
func (r *Registry) ForScheme(name string, h Handler) *Registry {
	r.byName[name] = h
	return r
}

// ForType registers h for every scheme of the given type (apiKey, http, oauth2,
// openIdConnect).
func (r *Registry) ForType(schemeType string, h Handler) *Registry {
	r.byType[schemeType] = h
	return r
}

// Len reports the number of registered handlers.
func (r *Registry) Len() int {
	return len(r.byName) + len(r.byType)
}

// HandleSecurity implements Handler.
func (r *Registry) HandleSecurity(inv Invocation, rc *request.Context) error {
	if h, ok := r.byName[inv.Name]; ok {
		return h.HandleSecurity(inv, rc)
	}
	if inv.Scheme != nil {
		if h, ok := r.byType[inv.Scheme.Type]; ok {
			return h.HandleSecurity(inv, rc)
		}
	}
	return nil
}

// APIKey places value where an apiKey scheme says: a header, a query parameter
// or a cookie.
func APIKey(value string) Handler {
	return HandlerFunc(func(inv Invocation, rc *request.Context) error {
		return applyAPIKey(inv.Scheme, value, rc)
	})
}

// Bearer sets "Authorization: Bearer <token>".
func Bearer(token string) Handler {
	return HandlerFunc(func(_ Invocation, rc *request.Context) error {
		rc.AddHeader("Authorization", "Bearer "+token)
		return nil
	})
}

// Basic sets "Authorization: Basic <base64(user:password)>".
func Basic(user, password string) Handler {
	return HandlerFunc(func(_ Invocation, rc *request.Context) error {
		rc.AddHeader("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(user+":"+password)))
		return nil
	})
}

// Credential is a configured secret for one scheme. The scheme decides which
// field is used.
type Credential struct {
	APIKey   string `yaml:"api_key"`
	Token    string `yaml:"token"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// HandleSecurity implements Handler.
func (c Credential) HandleSecurity(inv Invocation, rc *request.Context) error {
	if inv.Scheme == nil {
		return fmt.Errorf("scheme %q has no definition", inv.Name)
	}
	switch inv.Scheme.Type {
	case "apiKey":
		return applyAPIKey(inv.Scheme, c.APIKey, rc)
	case "http":
		switch strings.ToLower(inv.Scheme.Scheme) {
		case "basic":
			return Basic(c.Username, c.Password).HandleSecurity(inv, rc)
		case "bearer":
			return Bearer(c.Token).HandleSecurity(inv, rc)
		}
		return fmt.Errorf("unsupported http scheme %q", inv.Scheme.Scheme)
	case "oauth2", "openIdConnect":
		return Bearer(c.Token).HandleSecurity(inv, rc)
	}
	return fmt.Errorf("unsupported security scheme type %q", inv.Scheme.Type)
}

func applyAPIKey(scheme *openapi3.SecurityScheme, value string, rc *request.Context) error {
	if scheme == nil || scheme.Name == "" {
		return fmt.Errorf("apiKey scheme has no name")
	}
	switch scheme.In {
	case "header":
		rc.AddHeader(scheme.Name, value)
	case "query":
		rc.AddQuery(paramenc.Escape(scheme.Name) + "=" + paramenc.Escape(value))
	case "cookie":
		rc.AddHeader("Cookie", scheme.Name+"="+value)
	default:
		return fmt.Errorf("apiKey location %q is not supported", scheme.In)
	}
	return nil
}

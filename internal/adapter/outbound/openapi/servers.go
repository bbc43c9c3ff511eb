package openapi

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// ServerURL picks the first http(s) entry of servers, with variables replaced
// by their defaults. Relative entries are resolved against source when source
// is itself a URL. The result has no trailing slash.
func ServerURL(source string, servers openapi3.Servers) (string, error) {
	if len(servers) == 0 {
		return "", fmt.Errorf("no servers defined in OpenAPI document")
	}
	base, err := url.Parse(source)
	if err != nil || !base.IsAbs() {
		base = nil
	}

	for _, server := range servers {
		if server == nil || server.URL == "" {
			continue
		}
		raw := server.URL
		for name, v := range server.Variables {
			if v != nil {
				raw = strings.ReplaceAll(raw, "{"+name+"}", v.Default)
			}
		}
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if !u.IsAbs() {
			if base == nil {
				continue
			}
			u = base.ResolveReference(u)
		}
		if (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
			return strings.TrimRight(u.String(), "/"), nil
		}
	}
	return "", fmt.Errorf("no suitable HTTP/HTTPS server URL found in OpenAPI document")
}

package usecase

import (
	"context"
	"errors"

	"github.com/i2y/oapiquery/pkg/client"
	"github.com/i2y/oapiquery/pkg/lookup"
	"github.com/i2y/oapiquery/pkg/request"
)

// Standard errors returned by use cases.
var (
	ErrNoDocument = errors.New("no OpenAPI document configured")
	ErrBadCall    = errors.New("invalid call description")
)

// --- Document Source Related ---

// DocumentSource names where an OpenAPI document lives.
type DocumentSource struct {
	// Location is a file path, a document URL, or a service base URL to
	// auto-discover from.
	Location string
	Headers  map[string]string
}

// LoadedDocument is a fetched and parsed document.
type LoadedDocument struct {
	Source string
	// Resolved is the location actually read after auto-discovery.
	Resolved string
	Raw      []byte
	Document *lookup.Document
	// ServerURL is the first usable servers entry, empty if none.
	ServerURL string
}

// DocumentLoader fetches and parses OpenAPI documents.
type DocumentLoader interface {
	Load(ctx context.Context, src DocumentSource) (*LoadedDocument, error)
}

// --- Call Related ---

// Caller assembles and sends calls. *client.Client implements it.
type Caller interface {
	Do(ctx context.Context, call client.Call) (*request.Response, error)
	Prepare(ctx context.Context, call client.Call) (*request.Context, error)
}

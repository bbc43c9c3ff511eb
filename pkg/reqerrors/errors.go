// Package reqerrors defines the error taxonomy shared by every stage of request
// assembly. All types support errors.Is against the package sentinels and
// errors.As for field access.
//
//	_, err := c.Do(ctx, call)
//	var lookupErr *reqerrors.LookupError
//	if errors.As(err, &lookupErr) && lookupErr.Kind == reqerrors.KindParameter {
//		// the parameter bag named something the operation does not declare
//	}
package reqerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrLookup indicates a path, method, parameter, security scheme or reference
	// could not be resolved in the document.
	ErrLookup = errors.New("lookup error")

	// ErrCircularReference indicates a $ref chain revisited a pointer.
	ErrCircularReference = errors.New("circular reference")

	// ErrEncoding indicates a value could not be serialized for the wire.
	ErrEncoding = errors.New("encoding error")

	// ErrValidation indicates a schema check failed or no validator was registered.
	ErrValidation = errors.New("validation error")

	// ErrTransport indicates the transport failed or the server answered non-2xx.
	ErrTransport = errors.New("transport error")

	// ErrUnsupportedMethod is returned for methods the transport contract does not
	// define (trace). It is raised before any transport call.
	ErrUnsupportedMethod = errors.New("unsupported method")
)

// Lookup kinds.
const (
	KindPath        = "path"
	KindMethod      = "method"
	KindParameter   = "parameter"
	KindRequestBody = "requestBody"
	KindSecurity    = "securityScheme"
	KindReference   = "reference"
)

// LookupError reports something that could not be found in the document.
type LookupError struct {
	// Kind is one of the Kind* constants.
	Kind string
	// Key is the name being looked up (parameter name, scheme name, path template).
	Key string
	// Pointer is the $ref pointer being followed, if any.
	Pointer string
	// Circular is set when the pointer was already visited during this resolution.
	Circular bool
	// Message provides additional context.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a human-readable error message.
func (e *LookupError) Error() string {
	var b strings.Builder
	if e.Circular {
		b.WriteString("circular reference")
	} else {
		b.WriteString("lookup error")
	}
	if e.Kind != "" {
		b.WriteString(": " + e.Kind)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, " %q", e.Key)
	}
	if e.Pointer != "" {
		b.WriteString(" at " + e.Pointer)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": " + e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause for error chaining.
func (e *LookupError) Unwrap() error { return e.Cause }

// Is matches ErrLookup, and ErrCircularReference when Circular is set.
func (e *LookupError) Is(target error) bool {
	return target == ErrLookup || (target == ErrCircularReference && e.Circular)
}

// EncodingError reports a value that could not be serialized: unsupported style,
// shape mismatch, missing multipart encoding or unknown content type.
type EncodingError struct {
	// Key is the parameter or form field name.
	Key string
	// Style is the serialization style in use, if any.
	Style string
	// ContentType is the body or part content type in use, if any.
	ContentType string
	// Message describes the failure.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a human-readable error message.
func (e *EncodingError) Error() string {
	var b strings.Builder
	b.WriteString("encoding error")
	if e.Key != "" {
		fmt.Fprintf(&b, " for %q", e.Key)
	}
	if e.Style != "" {
		b.WriteString(" (style " + e.Style + ")")
	}
	if e.ContentType != "" {
		b.WriteString(" (content type " + e.ContentType + ")")
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": " + e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause for error chaining.
func (e *EncodingError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrEncoding.
func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

// ValidationError reports a rejected value, or a requested validator that does
// not exist (Missing).
type ValidationError struct {
	// Location is "body" or a parameter location.
	Location string
	// Key is the body content type or the parameter name.
	Key string
	// Missing is set when no validator was registered for Location/Key.
	Missing bool
	// Message provides additional context.
	Message string
	// Cause is the validator's own error.
	Cause error
}

// Error returns a human-readable error message.
func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Missing {
		b.WriteString("validator not found")
	} else {
		b.WriteString("validation error")
	}
	if e.Location != "" {
		b.WriteString(": " + e.Location)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, " %q", e.Key)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": " + e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause for error chaining.
func (e *ValidationError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// TransportError is produced by the bundled transports when the round trip fails
// or the server answers with a non-2xx status.
type TransportError struct {
	Method string
	URL    string
	// StatusCode is zero when no response was received.
	StatusCode int
	// Body holds the raw response body for non-2xx answers.
	Body []byte
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a human-readable error message.
func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString("transport error")
	if e.Method != "" || e.URL != "" {
		b.WriteString(": " + strings.TrimSpace(e.Method+" "+e.URL))
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.StatusCode)
		if len(e.Body) > 0 {
			b.WriteString(": " + string(e.Body))
		}
	}
	if e.Cause != nil {
		b.WriteString(": " + e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause for error chaining.
func (e *TransportError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

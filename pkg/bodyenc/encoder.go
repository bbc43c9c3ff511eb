// Package bodyenc encodes request payloads into the body of a request.Context.
//
// application/json payloads are passed through untouched and marshaled by the
// transport. multipart/form-data payloads are split into parts following the
// media type's encoding table. application/x-www-form-urlencoded payloads are
// serialized with form style. Anything else goes to a caller-registered
// BodyParser.
package bodyenc

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/i2y/oapiquery/pkg/paramenc"
	"github.com/i2y/oapiquery/pkg/reqerrors"
	"github.com/i2y/oapiquery/pkg/request"
)

// Body content types handled without a registered parser.
const (
	ContentJSON       = "application/json"
	ContentMultipart  = "multipart/form-data"
	ContentURLEncoded = "application/x-www-form-urlencoded"
)

// Encoder turns payloads into request bodies. It is safe for concurrent use once
// constructed.
type Encoder struct {
	formEncoders map[string]FormEncoder
	parsers      map[string]BodyParser
	strict       bool
	logger       *slog.Logger
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithStrict requires every multipart field to have an explicit encoding entry
// with a content type.
func WithStrict(strict bool) Option {
	return func(e *Encoder) { e.strict = strict }
}

// WithFormEncoder registers or replaces the multipart encoder for a part content type.
func WithFormEncoder(contentType string, fe FormEncoder) Option {
	return func(e *Encoder) { e.formEncoders[contentType] = fe }
}

// WithBodyParser registers a parser for a body content type. A parser registered
// for application/x-www-form-urlencoded replaces the built-in one.
func WithBodyParser(contentType string, p BodyParser) Option {
	return func(e *Encoder) { e.parsers[contentType] = p }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Encoder) { e.logger = logger }
}

// New creates an Encoder.
func New(opts ...Option) *Encoder {
	e := &Encoder{
		formEncoders: defaultFormEncoders(),
		parsers:      map[string]BodyParser{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "body_encoder")
	return e
}

// Encode writes call.Content into rc.Request according to call.ContentType.
func (e *Encoder) Encode(call BodyCall, rc *request.Context) error {
	if call.Content == nil {
		return &reqerrors.EncodingError{ContentType: call.ContentType, Message: "no content to encode"}
	}

	switch call.ContentType {
	case ContentJSON:
		rc.Request.Body = call.Content
		rc.Request.ContentType = ContentJSON
		return nil
	case ContentMultipart:
		form, err := e.Multipart(call.Content, call.MediaType)
		if err != nil {
			return err
		}
		rc.Request.Body = form
		rc.Request.ContentType = form.ContentType()
		return nil
	}

	if p, ok := e.parsers[call.ContentType]; ok {
		e.logger.Debug("Dispatching body to registered parser", slog.String("content_type", call.ContentType))
		return p.ParseBody(call, rc)
	}
	if call.ContentType == ContentURLEncoded {
		encoded, err := URLEncoded(call.Content, call.MediaType)
		if err != nil {
			return err
		}
		rc.Request.Body = encoded
		rc.Request.ContentType = ContentURLEncoded
		return nil
	}
	return &reqerrors.EncodingError{ContentType: call.ContentType, Message: "no encoder supported for request body"}
}

// Multipart builds a multipart form from the top-level fields of payload. Field
// order follows paramenc.Fields.
func (e *Encoder) Multipart(payload any, media *openapi3.MediaType) (*Form, error) {
	var encoding map[string]*openapi3.Encoding
	if media != nil {
		encoding = media.Encoding
	}
	if encoding == nil && e.strict {
		return nil, &reqerrors.EncodingError{ContentType: ContentMultipart, Message: "encoding was not provided for multipart form data"}
	}

	fields, ok := paramenc.Fields(payload)
	if !ok {
		return nil, &reqerrors.EncodingError{ContentType: ContentMultipart, Message: fmt.Sprintf("payload must be an object, got %T", payload)}
	}

	form := NewForm()
	for _, field := range fields {
		if err := e.encodeField(form, field, encoding); err != nil {
			return nil, err
		}
	}
	if err := form.Close(); err != nil {
		return nil, &reqerrors.EncodingError{ContentType: ContentMultipart, Cause: err}
	}
	return form, nil
}

func (e *Encoder) encodeField(form *Form, field paramenc.Field, encoding map[string]*openapi3.Encoding) error {
	var (
		fallback string
		files    []*request.File
	)
	if _, ok := asFile(field.Value); ok {
		fallback = PartFile
	} else if list, ok := asFiles(field.Value); ok {
		fallback = PartFileList
		files = list
	} else {
		fallback = PartJSON
	}

	contentType := fallback
	entry, declared := encoding[field.Key]
	switch {
	case declared:
		contentType = ""
		if entry != nil {
			contentType = entry.ContentType
		}
	case e.strict:
		return &reqerrors.EncodingError{Key: field.Key, ContentType: ContentMultipart, Message: "field has no encoding entry"}
	}

	if contentType == "" {
		if e.strict {
			return &reqerrors.EncodingError{Key: field.Key, ContentType: ContentMultipart, Message: "field has no proper encoding type"}
		}
		e.logger.Debug("Skipping multipart field without content type", slog.String("field", field.Key))
		return nil
	}

	if files != nil && contentType != PartFileList {
		for _, file := range files {
			if err := e.EncodeFormData(form, field.Key, file, contentType); err != nil {
				return err
			}
		}
		return nil
	}
	return e.EncodeFormData(form, field.Key, field.Value, contentType)
}

// EncodeFormData appends one field using the encoder registered for contentType.
func (e *Encoder) EncodeFormData(form *Form, key string, value any, contentType string) error {
	fe, ok := e.formEncoders[contentType]
	if !ok {
		return &reqerrors.EncodingError{Key: key, ContentType: contentType, Message: "couldn't encode data"}
	}
	if err := fe.EncodeFormData(form, key, value, contentType); err != nil {
		return fmt.Errorf("failed to encode form field %q: %w", key, err)
	}
	return nil
}

// URLEncoded serializes a flat object as an x-www-form-urlencoded body. Each
// field uses the style and explode of its encoding entry, form/true otherwise.
func URLEncoded(payload any, media *openapi3.MediaType) (string, error) {
	fields, ok := paramenc.Fields(payload)
	if !ok {
		return "", &reqerrors.EncodingError{ContentType: ContentURLEncoded, Message: fmt.Sprintf("payload must be an object, got %T", payload)}
	}

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		d := paramenc.Descriptor{Name: field.Key, In: paramenc.LocationQuery}
		if media != nil {
			if entry := media.Encoding[field.Key]; entry != nil {
				d.Style = paramenc.Style(entry.Style)
				d.Explode = entry.Explode
			}
		}
		fragment, err := paramenc.EncodeQuery(field.Key, field.Value, d)
		if err != nil {
			return "", err
		}
		parts = append(parts, fragment)
	}
	return strings.Join(parts, "&"), nil
}

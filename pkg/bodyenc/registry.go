package bodyenc

import (
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/i2y/oapiquery/pkg/reqerrors"
	"github.com/i2y/oapiquery/pkg/request"
)

// Part content types understood without registration.
const (
	PartJSON     = "application/json"
	PartText     = "text/plain"
	PartFile     = "file"
	PartFileList = "fileList"
)

// FormEncoder appends one multipart field for a given part content type.
type FormEncoder interface {
	EncodeFormData(form *Form, key string, value any, contentType string) error
}

// FormEncoderFunc adapts a function to FormEncoder.
type FormEncoderFunc func(form *Form, key string, value any, contentType string) error

// EncodeFormData calls f.
func (f FormEncoderFunc) EncodeFormData(form *Form, key string, value any, contentType string) error {
	return f(form, key, value, contentType)
}

// BodyCall describes the body a BodyParser is asked to encode.
type BodyCall struct {
	Path        string
	Method      request.Method
	ContentType string
	Content     any
	// MediaType is the document's entry for ContentType, nil if undeclared.
	MediaType *openapi3.MediaType
}

// BodyParser encodes a body of a content type the encoder does not handle
// itself, writing the result into rc.Request.
type BodyParser interface {
	ParseBody(call BodyCall, rc *request.Context) error
}

// BodyParserFunc adapts a function to BodyParser.
type BodyParserFunc func(call BodyCall, rc *request.Context) error

// ParseBody calls f.
func (f BodyParserFunc) ParseBody(call BodyCall, rc *request.Context) error {
	return f(call, rc)
}

func defaultFormEncoders() map[string]FormEncoder {
	return map[string]FormEncoder{
		PartJSON:     FormEncoderFunc(encodeJSONPart),
		PartText:     FormEncoderFunc(encodeTextPart),
		PartFile:     FormEncoderFunc(encodeFilePart),
		PartFileList: FormEncoderFunc(encodeFileListPart),
	}
}

func encodeJSONPart(form *Form, key string, value any, contentType string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return &reqerrors.EncodingError{Key: key, ContentType: contentType, Cause: err}
	}
	return form.WritePart(key, PartJSON, data)
}

func encodeTextPart(form *Form, key string, value any, _ string) error {
	if s, ok := value.(string); ok {
		return form.WriteField(key, s)
	}
	return form.WriteField(key, fmt.Sprint(value))
}

func encodeFilePart(form *Form, key string, value any, contentType string) error {
	file, ok := asFile(value)
	if !ok {
		return &reqerrors.EncodingError{Key: key, ContentType: contentType, Message: fmt.Sprintf("expected a file, got %T", value)}
	}
	return form.WriteFile(key, file)
}

func encodeFileListPart(form *Form, key string, value any, contentType string) error {
	files, ok := asFiles(value)
	if !ok {
		return &reqerrors.EncodingError{Key: key, ContentType: contentType, Message: fmt.Sprintf("expected a list of files, got %T", value)}
	}
	for i, file := range files {
		if file == nil {
			return &reqerrors.EncodingError{Key: key, ContentType: contentType, Message: fmt.Sprintf("item %d is not a file", i)}
		}
		if err := form.WriteFile(key, file); err != nil {
			return err
		}
	}
	return nil
}

func asFile(v any) (*request.File, bool) {
	switch f := v.(type) {
	case request.File:
		return &f, true
	case *request.File:
		return f, f != nil
	}
	return nil, false
}

// asFiles accepts []request.File, []*request.File and []any whose first element
// is a file. Later non-file elements come back as nil entries.
func asFiles(v any) ([]*request.File, bool) {
	switch list := v.(type) {
	case []request.File:
		out := make([]*request.File, len(list))
		for i := range list {
			out[i] = &list[i]
		}
		return out, len(out) > 0
	case []*request.File:
		return list, len(list) > 0 && list[0] != nil
	case []any:
		if len(list) == 0 {
			return nil, false
		}
		if _, ok := asFile(list[0]); !ok {
			return nil, false
		}
		out := make([]*request.File, len(list))
		for i, item := range list {
			out[i], _ = asFile(item)
		}
		return out, true
	}
	return nil, false
}

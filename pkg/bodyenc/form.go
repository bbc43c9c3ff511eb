package bodyenc

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/i2y/oapiquery/pkg/request"
)

// Form is an in-memory multipart/form-data body. It satisfies
// request.EncodedBody once closed.
type Form struct {
	buf    bytes.Buffer
	w      *multipart.Writer
	closed bool
}

// NewForm returns an empty form with a random boundary.
func NewForm() *Form {
	f := &Form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

// WriteField appends a plain text part.
func (f *Form) WriteField(key, value string) error {
	return f.w.WriteField(key, value)
}

// WritePart appends a part carrying its own Content-Type.
func (f *Form) WritePart(key, contentType string, data []byte) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`, escapeQuotes(key)))
	h.Set("Content-Type", contentType)
	pw, err := f.w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = pw.Write(data)
	return err
}

// WriteFile appends a file part, streaming its content.
func (f *Form) WriteFile(key string, file *request.File) error {
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(key), escapeQuotes(file.Name)))
	h.Set("Content-Type", contentType)
	pw, err := f.w.CreatePart(h)
	if err != nil {
		return err
	}
	if file.Content == nil {
		return nil
	}
	_, err = io.Copy(pw, file.Content)
	return err
}

// Close writes the trailing boundary. Further writes fail.
func (f *Form) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.w.Close()
}

// Reader returns the encoded form, closing it first if needed.
func (f *Form) Reader() io.Reader {
	_ = f.Close()
	return bytes.NewReader(f.buf.Bytes())
}

// ContentType returns multipart/form-data with the boundary parameter.
func (f *Form) ContentType() string {
	return f.w.FormDataContentType()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

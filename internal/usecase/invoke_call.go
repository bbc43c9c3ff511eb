package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/i2y/oapiquery/pkg/client"
	"github.com/i2y/oapiquery/pkg/paramenc"
	"github.com/i2y/oapiquery/pkg/request"
)

// CallFile is the YAML description of one call.
//
//	path: /pets/{petId}
//	method: put
//	body_key: multipart/form-data
//	body:
//	  name: rex
//	  photo: {$file: ./rex.png, content_type: image/png}
//	params:
//	  path: [{name: petId, value: 7}]
//	validate:
//	  request_body: true
//	  parameters: {path: [petId]}
type CallFile struct {
	Path     string         `yaml:"path"`
	Method   string         `yaml:"method"`
	BodyKey  string         `yaml:"body_key"`
	Body     any            `yaml:"body"`
	Params   request.Params `yaml:"params"`
	Validate *ValidateFile  `yaml:"validate"`
}

// ValidateFile selects validation for a CallFile.
type ValidateFile struct {
	RequestBody bool                `yaml:"request_body"`
	Parameters  map[string][]string `yaml:"parameters"`
}

// fileKey marks a map in a call body as a file reference.
const fileKey = "$file"

// ParseCallFile decodes a call description. File references in the body are
// read relative to baseDir.
func ParseCallFile(data []byte, baseDir string) (client.Call, error) {
	var cf CallFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return client.Call{}, fmt.Errorf("%w: %v", ErrBadCall, err)
	}
	if cf.Path == "" {
		return client.Call{}, fmt.Errorf("%w: path is required", ErrBadCall)
	}
	method, err := request.ParseMethod(cf.Method)
	if err != nil {
		return client.Call{}, fmt.Errorf("%w: %v", ErrBadCall, err)
	}
	body, err := resolveFiles(cf.Body, baseDir)
	if err != nil {
		return client.Call{}, err
	}

	call := client.Call{
		Path:    cf.Path,
		Method:  method,
		BodyKey: cf.BodyKey,
		Body:    body,
		Params:  cf.Params,
	}
	if cf.Validate != nil {
		call.Validate = &client.Validate{RequestBody: cf.Validate.RequestBody}
		for in, names := range cf.Validate.Parameters {
			switch loc := paramenc.Location(in); loc {
			case paramenc.LocationPath, paramenc.LocationQuery, paramenc.LocationHeader, paramenc.LocationCookie:
				if call.Validate.Parameters == nil {
					call.Validate.Parameters = map[paramenc.Location][]string{}
				}
				call.Validate.Parameters[loc] = names
			default:
				return client.Call{}, fmt.Errorf("%w: unknown parameter location %q", ErrBadCall, in)
			}
		}
	}
	return call, nil
}

// resolveFiles replaces {$file: path} maps with request.File values, one level
// deep and inside top-level lists.
func resolveFiles(body any, baseDir string) (any, error) {
	fields, ok := body.(map[string]any)
	if !ok {
		return body, nil
	}
	out := make(map[string]any, len(fields))
	for key, v := range fields {
		switch val := v.(type) {
		case map[string]any:
			f, isFile, err := readFile(val, baseDir)
			if err != nil {
				return nil, err
			}
			if isFile {
				out[key] = f
				continue
			}
		case []any:
			files := make([]any, 0, len(val))
			for _, el := range val {
				m, _ := el.(map[string]any)
				f, isFile, err := readFile(m, baseDir)
				if err != nil {
					return nil, err
				}
				if !isFile {
					files = nil
					break
				}
				files = append(files, f)
			}
			if files != nil {
				out[key] = files
				continue
			}
		}
		out[key] = v
	}
	return out, nil
}

func readFile(m map[string]any, baseDir string) (*request.File, bool, error) {
	path, ok := m[fileKey].(string)
	if !ok {
		return nil, false, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read body file: %w", err)
	}
	f := &request.File{Name: filepath.Base(path), Content: bytes.NewReader(data)}
	if ct, ok := m["content_type"].(string); ok {
		f.ContentType = ct
	}
	if name, ok := m["name"].(string); ok {
		f.Name = name
	}
	return f, true, nil
}

// InvokeCallUseCase runs calls through a Caller.
type InvokeCallUseCase struct {
	caller Caller
	logger *slog.Logger
}

// NewInvokeCallUseCase creates a new InvokeCallUseCase.
func NewInvokeCallUseCase(caller Caller, logger *slog.Logger) *InvokeCallUseCase {
	return &InvokeCallUseCase{
		caller: caller,
		logger: logger.With("usecase", "InvokeCall"),
	}
}

// Execute sends call and returns the response.
func (uc *InvokeCallUseCase) Execute(ctx context.Context, call client.Call) (*request.Response, error) {
	log := uc.logger.With(slog.String("method", string(call.Method)), slog.String("path", call.Path))
	log.Info("Executing call")

	resp, err := uc.caller.Do(ctx, call)
	if err != nil {
		log.Error("Call failed", slog.Any("error", err))
		return nil, fmt.Errorf("call %s %s failed: %w", call.Method.HTTP(), call.Path, err)
	}
	log.Info("Call successful", slog.Int("status_code", resp.StatusCode))
	return resp, nil
}

// DryRun assembles call without sending it.
func (uc *InvokeCallUseCase) DryRun(ctx context.Context, call client.Call) (*request.Config, error) {
	rc, err := uc.caller.Prepare(ctx, call)
	if err != nil {
		uc.logger.Error("Failed to prepare call", slog.Any("error", err))
		return nil, fmt.Errorf("prepare %s %s: %w", call.Method.HTTP(), call.Path, err)
	}
	return rc.Request, nil
}

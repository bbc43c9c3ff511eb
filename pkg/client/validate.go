package client

import (
	"log/slog"

	"github.com/i2y/oapiquery/pkg/paramenc"
	"github.com/i2y/oapiquery/pkg/reqerrors"
	"github.com/i2y/oapiquery/pkg/request"
)

var validatedLocations = []paramenc.Location{
	paramenc.LocationPath,
	paramenc.LocationQuery,
	paramenc.LocationHeader,
	paramenc.LocationCookie,
}

// validate runs the selected validators over call, replacing checked values with
// what the validators return. The caller's parameter bag is not modified.
func (c *Client) validate(call *Call) error {
	if c.validators == nil || call.Validate == nil {
		return nil
	}
	sel := call.Validate
	method := string(call.Method)

	if sel.RequestBody && call.BodyKey != "" && call.Body != nil {
		v, ok := c.validators.BodyValidator(call.Path, method, call.BodyKey)
		if !ok {
			if err := c.missingValidator("body", call.BodyKey); err != nil {
				return err
			}
		} else {
			parsed, err := v.Parse(call.Body)
			if err != nil {
				return &reqerrors.ValidationError{Location: "body", Key: call.BodyKey, Cause: err}
			}
			call.Body = parsed
		}
	}

	if len(sel.Parameters) == 0 {
		return nil
	}
	call.Params = call.Params.Clone()
	for _, in := range validatedLocations {
		names := sel.Parameters[in]
		if len(names) == 0 {
			continue
		}
		validators, ok := c.validators.ParameterValidators(call.Path, method, in)
		if !ok {
			if err := c.missingValidator(string(in), ""); err != nil {
				return err
			}
			continue
		}
		group := paramGroup(&call.Params, in)
		for _, name := range names {
			idx := indexOf(group, name)
			if idx < 0 {
				continue
			}
			v, ok := validators[name]
			if !ok {
				if err := c.missingValidator(string(in), name); err != nil {
					return err
				}
				continue
			}
			parsed, err := v.Parse(group[idx].Value)
			if err != nil {
				return &reqerrors.ValidationError{Location: string(in), Key: name, Cause: err}
			}
			group[idx].Value = parsed
		}
	}
	return nil
}

func (c *Client) missingValidator(location, key string) error {
	if c.silentError {
		c.logger.Warn("Validator not found", slog.String("location", location), slog.String("key", key))
		return nil
	}
	return &reqerrors.ValidationError{Location: location, Key: key, Missing: true}
}

func paramGroup(p *request.Params, in paramenc.Location) []request.Param {
	switch in {
	case paramenc.LocationPath:
		return p.Path
	case paramenc.LocationQuery:
		return p.Query
	case paramenc.LocationHeader:
		return p.Headers
	default:
		return p.Cookies
	}
}

func indexOf(params []request.Param, name string) int {
	for i, p := range params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

package validation_test

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/oapiquery/pkg/lookup"
	"github.com/i2y/oapiquery/pkg/paramenc"
	"github.com/i2y/oapiquery/pkg/validation"
)

const petstore = `
openapi: 3.0.3
info: {title: pets, version: "1"}
paths:
  /pets/{id}:
    parameters:
      - {name: id, in: path, required: true, schema: {type: integer, minimum: 1}}
    put:
      parameters:
        - {name: tags, in: query, schema: {type: array, items: {type: string}, maxItems: 2}}
      requestBody:
        content:
          application/json:
            schema: {$ref: "#/components/schemas/Pet"}
      responses:
        "200": {description: ok}
components:
  schemas:
    Pet:
      type: object
      required: [name]
      properties:
        name: {type: string}
`

func TestSchemaValidator(t *testing.T) {
	v := validation.SchemaValidator{Schema: openapi3.NewStringSchema().WithMaxLength(3)}

	got, err := v.Parse("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	_, err = v.Parse("abcd")
	assert.Error(t, err)

	_, err = v.Parse(func() {})
	assert.Error(t, err)

	got, err = validation.SchemaValidator{}.Parse(1)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestFromDocument(t *testing.T) {
	doc, err := lookup.Load(context.Background(), []byte(petstore))
	require.NoError(t, err)

	reg, err := validation.FromDocument(context.Background(), doc)
	require.NoError(t, err)
	require.True(t, reg.HasOperation("/pets/{id}", "PUT"))

	body, ok := reg.BodyValidator("/pets/{id}", "put", "application/json")
	require.True(t, ok)
	_, err = body.Parse(map[string]any{"name": "rex"})
	assert.NoError(t, err)
	_, err = body.Parse(paramenc.O("age", 3))
	assert.Error(t, err, "required property is missing")

	paths, ok := reg.ParameterValidators("/pets/{id}", "put", paramenc.LocationPath)
	require.True(t, ok)
	_, err = paths["id"].Parse(5)
	assert.NoError(t, err)
	_, err = paths["id"].Parse(0)
	assert.Error(t, err)

	queries, ok := reg.ParameterValidators("/pets/{id}", "put", paramenc.LocationQuery)
	require.True(t, ok)
	_, err = queries["tags"].Parse([]string{"a", "b", "c"})
	assert.Error(t, err)

	_, ok = reg.ParameterValidators("/pets/{id}", "put", paramenc.LocationHeader)
	assert.False(t, ok)
	_, ok = reg.BodyValidator("/missing", "get", "application/json")
	assert.False(t, ok)
}

func TestFromDocument_RawTree(t *testing.T) {
	doc := lookup.FromTree(map[string]any{
		"openapi": "3.0.3",
		"info":    map[string]any{"title": "t", "version": "1"},
		"paths": map[string]any{
			"/items": map[string]any{
				"get": map[string]any{
					"parameters": []any{
						map[string]any{"name": "limit", "in": "query", "schema": map[string]any{"type": "integer", "maximum": 10}},
					},
					"responses": map[string]any{"200": map[string]any{"description": "ok"}},
				},
			},
		},
	})

	reg, err := validation.FromDocument(context.Background(), doc)
	require.NoError(t, err)
	group, ok := reg.ParameterValidators("/items", "get", paramenc.LocationQuery)
	require.True(t, ok)
	_, err = group["limit"].Parse(11)
	assert.Error(t, err)
}

func TestRegistryManual(t *testing.T) {
	calls := 0
	upper := validation.ValidatorFunc(func(v any) (any, error) {
		calls++
		return v.(string) + "!", nil
	})
	reg := validation.NewRegistry().Parameter("/a", "get", paramenc.LocationHeader, "X-Id", upper)

	group, ok := reg.ParameterValidators("/a", "GET", paramenc.LocationHeader)
	require.True(t, ok)
	got, err := group["X-Id"].Parse("id")
	require.NoError(t, err)
	assert.Equal(t, "id!", got)
	assert.Equal(t, 1, calls)
}

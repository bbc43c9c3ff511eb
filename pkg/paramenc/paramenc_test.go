package paramenc_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/oapiquery/pkg/paramenc"
	"github.com/i2y/oapiquery/pkg/reqerrors"
)

type encodeFunc func(key string, v any, explode bool) (string, error)

var (
	scalar = 5
	array  = []int{3, 4, 5}
	object = paramenc.O("role", "admin", "firstName", "Alex")
)

func TestPathEncoders(t *testing.T) {
	tests := []struct {
		name    string
		encode  encodeFunc
		value   any
		explode bool
		want    string
	}{
		{"simple scalar", paramenc.PathSimple, scalar, false, "5"},
		{"simple array", paramenc.PathSimple, array, false, "3,4,5"},
		{"simple array explode", paramenc.PathSimple, array, true, "3,4,5"},
		{"simple object", paramenc.PathSimple, object, false, "role,admin,firstName,Alex"},
		{"simple object explode", paramenc.PathSimple, object, true, "role=admin,firstName=Alex"},

		{"label scalar", paramenc.PathLabel, scalar, false, ".5"},
		{"label array", paramenc.PathLabel, array, false, ".3,4,5"},
		{"label array explode", paramenc.PathLabel, array, true, ".3.4.5"},
		{"label object", paramenc.PathLabel, object, false, ".role,admin,firstName,Alex"},
		{"label object explode", paramenc.PathLabel, object, true, ".role=admin.firstName=Alex"},

		{"matrix scalar", paramenc.PathMatrix, scalar, false, ";id=5"},
		{"matrix array", paramenc.PathMatrix, array, false, ";3,4,5"},
		{"matrix array explode", paramenc.PathMatrix, array, true, ";id=3;id=4;id=5"},
		{"matrix object", paramenc.PathMatrix, object, false, "id=role,admin,firstName,Alex"},
		{"matrix object explode", paramenc.PathMatrix, object, true, ";role=admin;firstName=Alex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.encode("id", tt.value, tt.explode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryEncoders(t *testing.T) {
	tests := []struct {
		name    string
		encode  encodeFunc
		value   any
		explode bool
		want    string
	}{
		{"form scalar", paramenc.QueryForm, scalar, true, "id=5"},
		{"form array", paramenc.QueryForm, array, false, "id=3,4,5"},
		{"form array explode", paramenc.QueryForm, array, true, "id=3&id=4&id=5"},
		{"form object", paramenc.QueryForm, object, false, "id=role,admin,firstName,Alex"},
		{"form object explode", paramenc.QueryForm, object, true, "role=admin&firstName=Alex"},

		{"space array", paramenc.QuerySpaceDelimited, array, false, "id=3%204%205"},
		{"space array explode", paramenc.QuerySpaceDelimited, array, true, "id=3&id=4&id=5"},

		{"pipe array", paramenc.QueryPipeDelimited, array, false, "id=3|4|5"},
		{"pipe array explode", paramenc.QueryPipeDelimited, array, true, "id=3&id=4&id=5"},

		{"deep object", paramenc.QueryDeepObject, paramenc.O("role", "admin"), true, "id[role]=admin"},
		{"deep object two fields", paramenc.QueryDeepObject, object, true, "id[role]=admin&id[firstName]=Alex"},

		{"form escapes values", paramenc.QueryForm, "a b&c", true, "id=a%20b%26c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.encode("id", tt.value, tt.explode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeaderSimple(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		explode bool
		want    string
	}{
		{"scalar", scalar, true, "5"},
		{"array", array, true, "3,4,5"},
		{"object", object, false, "role,admin,firstName,Alex"},
		{"object explode", object, true, "role=admin,firstName=Alex"},
		{"not escaped", "a b/c", true, "a b/c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := paramenc.HeaderSimple("X-MyHeader", tt.value, tt.explode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShapeMismatch(t *testing.T) {
	tests := []struct {
		name    string
		encode  encodeFunc
		value   any
		explode bool
	}{
		{"space scalar", paramenc.QuerySpaceDelimited, scalar, false},
		{"space object", paramenc.QuerySpaceDelimited, object, true},
		{"pipe scalar", paramenc.QueryPipeDelimited, "x", false},
		{"pipe object", paramenc.QueryPipeDelimited, object, false},
		{"deep scalar", paramenc.QueryDeepObject, scalar, true},
		{"deep array", paramenc.QueryDeepObject, array, true},
		{"deep no explode", paramenc.QueryDeepObject, object, false},
		{"nested array", paramenc.PathSimple, []any{[]int{1}}, false},
		{"nested object", paramenc.QueryForm, map[string]any{"a": map[string]any{"b": 1}}, true},
		{"nil value", paramenc.HeaderSimple, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.encode("id", tt.value, tt.explode)
			require.Error(t, err)
			assert.ErrorIs(t, err, reqerrors.ErrEncoding)

			var encErr *reqerrors.EncodingError
			require.ErrorAs(t, err, &encErr)
			assert.Equal(t, "id", encErr.Key)
		})
	}
}

func TestValueKinds(t *testing.T) {
	type filter struct {
		Role   string `json:"role"`
		Active bool   `json:"active"`
		Skip   string `json:"-"`
	}

	got, err := paramenc.QueryForm("f", filter{Role: "admin", Active: true, Skip: "x"}, true)
	require.NoError(t, err)
	assert.Equal(t, "role=admin&active=true", got)

	got, err = paramenc.QueryForm("f", map[string]int{"b": 2, "a": 1}, true)
	require.NoError(t, err)
	assert.Equal(t, "a=1&b=2", got, "map keys are sorted")

	got, err = paramenc.PathSimple("price", decimal.RequireFromString("10.50"), false)
	require.NoError(t, err)
	assert.Equal(t, "10.5", got)

	got, err = paramenc.QueryForm("ratio", 0.25, true)
	require.NoError(t, err)
	assert.Equal(t, "ratio=0.25", got)

	s := "ptr"
	got, err = paramenc.PathLabel("p", &s, false)
	require.NoError(t, err)
	assert.Equal(t, ".ptr", got)
}

func TestSubstitutePath(t *testing.T) {
	yes := true

	tests := []struct {
		name       string
		template   string
		value      any
		descriptor paramenc.Descriptor
		want       string
		wantErr    bool
	}{
		{
			name:       "simple default",
			template:   "/users/{id}",
			value:      5,
			descriptor: paramenc.Descriptor{Name: "id", In: paramenc.LocationPath},
			want:       "/users/5",
		},
		{
			name:       "matrix explode token",
			template:   "/users/{;id*}",
			value:      []int{3, 4, 5},
			descriptor: paramenc.Descriptor{Name: "id", In: paramenc.LocationPath, Style: paramenc.StyleMatrix, Explode: &yes},
			want:       "/users/;id=3;id=4;id=5",
		},
		{
			name:       "label falls back to bare token",
			template:   "/users/{id}/posts",
			value:      "x",
			descriptor: paramenc.Descriptor{Name: "id", In: paramenc.LocationPath, Style: paramenc.StyleLabel},
			want:       "/users/.x/posts",
		},
		{
			name:       "only first occurrence",
			template:   "/a/{id}/b/{id}",
			value:      1,
			descriptor: paramenc.Descriptor{Name: "id", In: paramenc.LocationPath},
			want:       "/a/1/b/{id}",
		},
		{
			name:       "escapes reserved characters",
			template:   "/files/{name}",
			value:      "a/b c",
			descriptor: paramenc.Descriptor{Name: "name", In: paramenc.LocationPath},
			want:       "/files/a%2Fb%20c",
		},
		{
			name:       "missing placeholder",
			template:   "/users",
			value:      5,
			descriptor: paramenc.Descriptor{Name: "id", In: paramenc.LocationPath},
			wantErr:    true,
		},
		{
			name:       "unsupported style",
			template:   "/users/{id}",
			value:      5,
			descriptor: paramenc.Descriptor{Name: "id", In: paramenc.LocationPath, Style: paramenc.StyleForm},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := paramenc.SubstitutePath(tt.template, tt.descriptor.Name, tt.value, tt.descriptor)
			if tt.wantErr {
				assert.ErrorIs(t, err, reqerrors.ErrEncoding)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescriptorDefaults(t *testing.T) {
	tests := []struct {
		in          paramenc.Location
		wantStyle   paramenc.Style
		wantExplode bool
	}{
		{paramenc.LocationPath, paramenc.StyleSimple, false},
		{paramenc.LocationQuery, paramenc.StyleForm, true},
		{paramenc.LocationHeader, paramenc.StyleSimple, true},
		{paramenc.LocationCookie, paramenc.StyleForm, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			d := paramenc.Descriptor{Name: "x", In: tt.in}
			assert.Equal(t, tt.wantStyle, d.EffectiveStyle())
			assert.Equal(t, tt.wantExplode, d.EffectiveExplode())
		})
	}
}

func TestEncodeDispatch(t *testing.T) {
	no := false

	got, err := paramenc.EncodeQuery("active", true, paramenc.Descriptor{In: paramenc.LocationQuery})
	require.NoError(t, err)
	assert.Equal(t, "active=true", got)

	got, err = paramenc.EncodeQuery("ids", []string{"a", "b"}, paramenc.Descriptor{In: paramenc.LocationQuery, Style: paramenc.StylePipeDelimited, Explode: &no})
	require.NoError(t, err)
	assert.Equal(t, "ids=a|b", got)

	_, err = paramenc.EncodeQuery("x", 1, paramenc.Descriptor{In: paramenc.LocationQuery, Style: paramenc.StyleMatrix})
	assert.ErrorIs(t, err, reqerrors.ErrEncoding)

	got, err = paramenc.EncodeHeader("X-Ids", []int{1, 2}, paramenc.Descriptor{In: paramenc.LocationHeader})
	require.NoError(t, err)
	assert.Equal(t, "1,2", got)

	_, err = paramenc.EncodeHeader("X-Ids", 1, paramenc.Descriptor{In: paramenc.LocationHeader, Style: paramenc.StyleLabel})
	assert.ErrorIs(t, err, reqerrors.ErrEncoding)
}

func TestObjectMarshalJSON(t *testing.T) {
	data, err := json.Marshal(paramenc.O("z", 1, "a", []string{"x"}))
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":["x"]}`, string(data))
}

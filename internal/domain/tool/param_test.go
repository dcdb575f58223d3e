package tool

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParam_RejectsIllegalCombinations(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		t    ParamType
		opts []ParamOption
	}{
		{"unknown type", ParamType("object"), nil},
		{"enum on boolean", ParamBoolean, []ParamOption{WithEnum(true, false)}},
		{"enum on array", ParamArray, []ParamOption{WithEnum("a")}},
		{"enum member of wrong type", ParamString, []ParamOption{WithEnum("a", 1)}},
		{"default of wrong type", ParamNumber, []ParamOption{WithDefault("20")}},
		{"default outside enum", ParamString, []ParamOption{WithEnum("draft", "published"), WithDefault("archived")}},
		{"format on number", ParamNumber, []ParamOption{WithFormat("date")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewParam(tc.t, tc.opts...)
			require.ErrorIs(t, err, ErrInvalidParamSpec)
		})
	}
}

func TestNewParam_TypedConstructors(t *testing.T) {
	t.Parallel()

	s, err := NewStringParam(Required(), WithEnum("draft", "published"), WithDefault("draft"), WithFormat("slug"))
	require.NoError(t, err)
	assert.Equal(t, ParamString, s.Type)
	assert.True(t, s.Required)

	n, err := NewNumberParam(WithEnum(10, 20), WithDefault(json.Number("20")))
	require.NoError(t, err)
	assert.Equal(t, ParamNumber, n.Type)

	_, err = NewBooleanParam(WithEnum(true))
	require.ErrorIs(t, err, ErrInvalidParamSpec)

	_, err = NewArrayParam(WithFormat("csv"))
	require.ErrorIs(t, err, ErrInvalidParamSpec)
}

func TestMustParam_PanicsOnIllegalSpec(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustParam(ParamBoolean, WithEnum(true)) })
}

func TestParamType_Matches(t *testing.T) {
	t.Parallel()

	assert.True(t, ParamNumber.Matches(3))
	assert.True(t, ParamNumber.Matches(uint8(3)))
	assert.True(t, ParamNumber.Matches(json.Number("1.5")))
	assert.False(t, ParamNumber.Matches(json.Number("abc")))
	assert.False(t, ParamNumber.Matches("3"))
	assert.True(t, ParamArray.Matches([]string{"a"}))
	assert.True(t, ParamArray.Matches([2]int{}))
	assert.False(t, ParamArray.Matches(nil))
	assert.False(t, ParamArray.Matches(map[string]any{}))
	assert.True(t, ParamBoolean.Matches(false))
	assert.False(t, ParamString.Matches(nil))
}

func TestParamSchema_MarshalJSONKeepsDeclarationOrder(t *testing.T) {
	t.Parallel()

	schema := ParamSchema{
		{Name: "zeta", Spec: MustParam(ParamString, Required())},
		{Name: "alpha", Spec: MustParam(ParamNumber, WithDefault(20))},
		{Name: "status", Spec: MustParam(ParamString, WithEnum("open", "closed"))},
	}

	raw, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.Equal(t,
		`{"zeta":{"type":"string","required":true},"alpha":{"type":"number","required":false,"default":20},"status":{"type":"string","required":false,"enum":["open","closed"]}}`,
		string(raw))

	spec, ok := schema.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, ParamNumber, spec.Type)
	_, ok = schema.Get("missing")
	assert.False(t, ok)
}

package tool

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:     "view-things",
			Category: CategoryConversations,
			Endpoint: "things_view",
			Params: ParamSchema{
				{Name: "locationId", Spec: MustParam(ParamString, Required())},
				{Name: "limit", Spec: MustParam(ParamNumber, WithDefault(20))},
			},
			RequiredScopes: []string{"View Things"},
		},
		{
			Name:           "edit-things",
			Category:       CategoryConversations,
			Endpoint:       "things_edit",
			RequiredScopes: []string{"Edit Things", "View Things"},
		},
		{
			Name:           "view-people",
			Category:       CategoryContacts,
			Endpoint:       "people_view",
			Description:    "List people",
			RequiredScopes: []string{"View People"},
		},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(testDefinitions())
	require.NoError(t, err)
	return r
}

func TestNewRegistry_RejectsDuplicateNames(t *testing.T) {
	t.Parallel()

	defs := testDefinitions()
	defs = append(defs, defs[0])
	_, err := NewRegistry(defs)
	assert.ErrorIs(t, err, ErrDuplicateToolName)
}

func TestNewRegistry_RejectsIncompleteDefinitions(t *testing.T) {
	t.Parallel()

	cases := map[string]ToolDefinition{
		"no name":     {Category: CategoryBlog, Endpoint: "x"},
		"no category": {Name: "a", Endpoint: "x"},
		"no endpoint": {Name: "a", Category: CategoryBlog},
		"dup param": {Name: "a", Category: CategoryBlog, Endpoint: "x", Params: ParamSchema{
			{Name: "p", Spec: MustParam(ParamString)},
			{Name: "p", Spec: MustParam(ParamNumber)},
		}},
	}
	for name, def := range cases {
		_, err := NewRegistry([]ToolDefinition{def})
		assert.ErrorIs(t, err, ErrInvalidDefinition, name)
	}
}

func TestNewRegistry_RejectsIllegalParamSpec(t *testing.T) {
	t.Parallel()

	def := ToolDefinition{Name: "a", Category: CategoryBlog, Endpoint: "x", Params: ParamSchema{
		{Name: "flag", Spec: ParamSpec{Type: ParamBoolean, Enum: []any{true}}},
	}}
	_, err := NewRegistry([]ToolDefinition{def})
	assert.ErrorIs(t, err, ErrInvalidParamSpec)
}

func TestRegistry_LookupAndCopySemantics(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	def, ok := r.Lookup("view-things")
	require.True(t, ok)
	def.RequiredScopes[0] = "mutated"
	def.Params[0].Name = "mutated"

	again, _ := r.Lookup("view-things")
	assert.Equal(t, "View Things", again.RequiredScopes[0], "registry state leaked through Lookup")
	assert.Equal(t, "locationId", again.Params[0].Name, "registry state leaked through Lookup")

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistry_ByCategoryKeepsRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	got := r.ByCategory(CategoryConversations)
	require.Len(t, got, 2)
	assert.Equal(t, "view-things", got[0].Name)
	assert.Equal(t, "edit-things", got[1].Name)
	assert.Empty(t, r.ByCategory(CategoryCalendars))
}

func TestRegistry_AllScopesIsUnionInFirstSeenOrder(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	assert.Equal(t, []string{"View Things", "Edit Things", "View People"}, r.AllScopes())
}

func TestRegistry_SupportedExcludesUnsupportedCategories(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	supported := r.Supported()
	assert.Len(t, supported, 2)
	for _, d := range supported {
		assert.NotEqual(t, CategoryContacts, d.Category, d.Name)
	}
	assert.Equal(t, []Category{CategoryConversations, CategoryContacts}, r.Categories())
}

func TestRegistry_Search(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	got := r.Search("PEOPLE", SearchFilter{})
	require.Len(t, got, 1, "case-insensitive search")
	assert.Equal(t, "view-people", got[0].Name)

	assert.Len(t, r.Search("view", SearchFilter{Category: CategoryConversations}), 1, "category filter")

	got = r.Search("things", SearchFilter{Scope: "Edit Things"})
	require.Len(t, got, 1, "scope filter")
	assert.Equal(t, "edit-things", got[0].Name)
}

func TestRegistry_ValidateParams_UnknownToolShortCircuits(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	verdict, err := r.ValidateParams("nope", map[string]any{})
	require.ErrorIs(t, err, ErrToolNotFound)
	assert.False(t, verdict.Valid)
	assert.Empty(t, verdict.Errors)
}

func TestToolDefinition_MarshalJSON(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(testDefinitions()[0])
	require.NoError(t, err)
	want := `{"name":"view-things","category":"conversations","endpoint":"things_view","description":"",` +
		`"parameters":{"locationId":{"type":"string","required":true},"limit":{"type":"number","required":false,"default":20}},` +
		`"requiredScopes":["View Things"]}`
	assert.Equal(t, want, string(raw))
}

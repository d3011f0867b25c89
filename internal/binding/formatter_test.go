package binding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
)

type greetingInput struct {
	Name     string `json:"name" validate:"required"`
	Language string `json:"language" validate:"omitempty,len=2"`
}

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/greetings", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

var greetingSlot = domain.InputSlot{Name: "greeting", Source: domain.SourceBody, Type: reflect.TypeOf(greetingInput{})}

func TestJSONFormatter_Decode(t *testing.T) {
	ac := newRequestContext(jsonRequest(`{"name":"ada","language":"en"}`), nil)
	vs := domain.NewValidationState()

	got, err := NewJSONFormatter().Read(context.Background(), ac, vs, greetingSlot)

	require.NoError(t, err)
	assert.Equal(t, greetingInput{Name: "ada", Language: "en"}, got)
	assert.True(t, vs.IsValid())
}

func TestJSONFormatter_EmptyBody(t *testing.T) {
	ac := newRequestContext(jsonRequest(""), nil)
	vs := domain.NewValidationState()

	got, err := NewJSONFormatter().Read(context.Background(), ac, vs, greetingSlot)

	require.NoError(t, err)
	assert.Equal(t, greetingInput{}, got)
	assert.Equal(t, []string{"greeting"}, vs.Fields())
}

func TestJSONFormatter_StructValidation(t *testing.T) {
	ac := newRequestContext(jsonRequest(`{"language":"english"}`), nil)
	vs := domain.NewValidationState()

	_, err := NewJSONFormatter().Read(context.Background(), ac, vs, greetingSlot)

	require.NoError(t, err)
	assert.Equal(t, []string{"greeting.language", "greeting.name"}, vs.Fields())
	assert.False(t, vs.IsFieldValid("greeting"))
}

func TestJSONFormatter_TypeMismatch(t *testing.T) {
	ac := newRequestContext(jsonRequest(`{"name":42}`), nil)
	vs := domain.NewValidationState()

	_, err := NewJSONFormatter().Read(context.Background(), ac, vs, greetingSlot)

	require.NoError(t, err)
	require.Len(t, vs.Errors("greeting"), 1)
	assert.Contains(t, vs.Errors("greeting")[0].Message, "name")
}

func TestJSONFormatter_UnsupportedContentType(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("name=ada"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	ac := newRequestContext(r, nil)
	vs := domain.NewValidationState()

	_, err := NewJSONFormatter().Read(context.Background(), ac, vs, greetingSlot)

	require.NoError(t, err)
	assert.False(t, vs.IsFieldValid("greeting"))
}

func TestJSONFormatter_DisallowUnknownFields(t *testing.T) {
	ac := newRequestContext(jsonRequest(`{"name":"ada","extra":true}`), nil)
	vs := domain.NewValidationState()
	f := NewJSONFormatter()
	f.DisallowUnknownFields = true

	_, err := f.Read(context.Background(), ac, vs, greetingSlot)

	require.NoError(t, err)
	assert.False(t, vs.IsValid())
}

func TestJSONFormatter_Untyped(t *testing.T) {
	ac := newRequestContext(jsonRequest(`{"a":[1,2]}`), nil)
	vs := domain.NewValidationState()

	got, err := NewJSONFormatter().Read(context.Background(), ac, vs, domain.InputSlot{Name: "doc", Source: domain.SourceBody})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": []any{float64(1), float64(2)}}, got)
}

const greetingSchema = `{
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "language": {"type": "string", "enum": ["en", "fr", "de"]}
  }
}`

func TestJSONFormatter_Schema(t *testing.T) {
	slot := greetingSlot
	slot.Schema = []byte(greetingSchema)
	f := NewJSONFormatter()

	t.Run("valid", func(t *testing.T) {
		vs := domain.NewValidationState()
		got, err := f.Read(context.Background(), newRequestContext(jsonRequest(`{"name":"ada","language":"fr"}`), nil), vs, slot)
		require.NoError(t, err)
		assert.Equal(t, greetingInput{Name: "ada", Language: "fr"}, got)
		assert.True(t, vs.IsValid())
	})

	t.Run("violations keyed by location", func(t *testing.T) {
		vs := domain.NewValidationState()
		_, err := f.Read(context.Background(), newRequestContext(jsonRequest(`{"name":"ada","language":"xx"}`), nil), vs, slot)
		require.NoError(t, err)
		assert.Equal(t, []string{"greeting.language"}, vs.Fields())
	})

	t.Run("missing required", func(t *testing.T) {
		vs := domain.NewValidationState()
		_, err := f.Read(context.Background(), newRequestContext(jsonRequest(`{}`), nil), vs, slot)
		require.NoError(t, err)
		assert.Equal(t, []string{"greeting"}, vs.Fields())
	})

	assert.Len(t, f.schemas.cache, 1, "schema compiled once")
}

func TestJSONFormatter_BadSchemaIsFault(t *testing.T) {
	slot := greetingSlot
	slot.Schema = []byte(`{"type": 12}`)

	_, err := NewJSONFormatter().Read(context.Background(), newRequestContext(jsonRequest(`{}`), nil), domain.NewValidationState(), slot)

	require.Error(t, err)
}

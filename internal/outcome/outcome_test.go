package outcome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
)

func newContext() (*domain.ActionContext, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return domain.NewActionContext(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil, nil), rec
}

type greeting struct {
	Message string `json:"message"`
}

func TestFactory_Create(t *testing.T) {
	status := domain.NewStatusOutcome(http.StatusTeapot)
	var nilGreeting *greeting

	tests := []struct {
		name     string
		declared reflect.Type
		value    any
		want     any
		status   int
	}{
		{name: "outcome passes through", value: status, want: status, status: http.StatusTeapot},
		{name: "nil is no content", value: nil, status: http.StatusNoContent},
		{name: "typed nil pointer is no content", declared: reflect.TypeOf(nilGreeting), value: nilGreeting, status: http.StatusNoContent},
		{name: "string is content", declared: reflect.TypeOf(""), value: "ok", status: http.StatusOK},
		{name: "struct is object", value: greeting{Message: "hi"}, status: http.StatusOK},
	}

	f := NewFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac, _ := newContext()

			got := f.Create(ac, tt.declared, tt.value)

			require.NotNil(t, got)
			if tt.want != nil {
				assert.Same(t, tt.want, got)
			}
			assert.Equal(t, tt.status, domain.StatusOf(got))
		})
	}
}

func TestFactory_StringWritesPlainText(t *testing.T) {
	ac, rec := newContext()

	o := NewFactory().Create(ac, reflect.TypeOf(""), "ok")
	require.NoError(t, o.Execute(context.Background(), ac))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestObject_WritesJSON(t *testing.T) {
	ac, rec := newContext()

	require.NoError(t, Created(greeting{Message: "hi"}).Execute(context.Background(), ac))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"hi"}`, rec.Body.String())
}

func TestObject_EncodeFailure(t *testing.T) {
	ac, rec := newContext()

	err := NewObject(make(chan int)).Execute(context.Background(), ac)

	require.Error(t, err)
	assert.Empty(t, rec.Body.String())
}

func TestValidationProblem(t *testing.T) {
	ac, rec := newContext()
	vs := domain.NewValidationState()
	vs.AddMessage("name", "is required")

	o := NewValidationProblem(vs)
	require.NoError(t, o.Execute(context.Background(), ac))

	assert.Equal(t, http.StatusBadRequest, o.Status())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error struct {
			Type    string              `json:"type"`
			Code    string              `json:"code"`
			Details map[string][]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_request", body.Error.Type)
	assert.Equal(t, "validation_failed", body.Error.Code)
	assert.Equal(t, []string{"is required"}, body.Error.Details["name"])
}

func TestProblem(t *testing.T) {
	ac, rec := newContext()

	o := NewProblem(domain.ErrNotFound("greeting 7 not found"))
	require.NoError(t, o.Execute(context.Background(), ac))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":{"type":"not_found","message":"greeting 7 not found"}}`, rec.Body.String())
}

func TestExecute_WithoutWriter(t *testing.T) {
	ac := domain.NewActionContext(nil, nil, nil, nil)

	assert.Error(t, NewContent("x").Execute(context.Background(), ac))
	assert.Error(t, NewObject(1).Execute(context.Background(), ac))
}

func TestToCanonicalError(t *testing.T) {
	apiErr := domain.ErrConflict("exists")

	assert.Same(t, apiErr, ToCanonicalError(fmt.Errorf("wrapped: %w", apiErr)))

	got := ToCanonicalError(errors.New("database is locked"))
	assert.Equal(t, domain.ErrorTypeServer, got.Type)
	assert.NotContains(t, got.Message, "database", "internal details are not exposed")
}

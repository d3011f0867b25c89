package filters

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
)

func TestPolicyFilter(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		principal  *domain.Principal
		wantAllow  bool
	}{
		{"method match", `request.method == "GET"`, nil, true},
		{"method mismatch", `request.method == "POST"`, nil, false},
		{"route value", `request.route.name == "alice"`, nil, true},
		{"scope granted", `"greet" in principal.scopes`, &domain.Principal{Name: "alice", Scopes: []string{"greet"}}, true},
		{"scope missing", `"admin" in principal.scopes`, &domain.Principal{Name: "alice", Scopes: []string{"greet"}}, false},
		{"anonymous", `principal.name != ""`, nil, false},
		{"query", `request.query.lang == "fr"`, nil, true},
		{"header", `request.headers["X-Tenant"] == "acme"`, nil, true},
		{"action and controller", `request.action == "greet" && request.controller == "greeter"`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewPolicyFilter(tt.expression, 0)
			require.NoError(t, err)

			ac, rec := newActionContext("GET", "/greet/alice?lang=fr", nil)
			ac.Request.Header.Set("X-Tenant", "acme")
			if tt.principal != nil {
				ac.Items[domain.ItemPrincipal] = tt.principal
			}
			n := passed()

			tr, err := f.OnAuthorization(context.Background(), &domain.AuthorizationContext{Action: ac}, n.next)
			require.NoError(t, err)

			if tt.wantAllow {
				assert.Equal(t, 1, n.calls)
				assert.Equal(t, domain.StatePassed, tr.State)
				return
			}
			assert.Equal(t, 0, n.calls)
			require.Equal(t, domain.StateCompleted, tr.State)
			require.NoError(t, tr.Outcome.Execute(context.Background(), ac))
			assert.Equal(t, http.StatusForbidden, rec.Code)

			var body struct {
				Error domain.APIError `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, domain.ErrorCodePolicyDenied, body.Error.Code)
		})
	}
}

func TestPolicyFilter_DenyStatus(t *testing.T) {
	f, err := NewPolicyFilter(`false`, http.StatusNotFound)
	require.NoError(t, err)

	ac, _ := newActionContext("GET", "/", nil)
	tr, err := f.OnAuthorization(context.Background(), &domain.AuthorizationContext{Action: ac}, passed().next)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, domain.StatusOf(tr.Outcome))
}

func TestNewPolicyFilter_Errors(t *testing.T) {
	_, err := NewPolicyFilter("", 0)
	assert.Error(t, err)

	_, err = NewPolicyFilter(`request.method ==`, 0)
	assert.ErrorContains(t, err, "compile")

	_, err = NewPolicyFilter(`1 + 1`, 0)
	assert.ErrorContains(t, err, "must evaluate to bool")
}

func TestPolicyFilter_NonBoolResultFaults(t *testing.T) {
	f, err := NewPolicyFilter(`request.method`, 0)
	require.NoError(t, err)

	ac, _ := newActionContext("GET", "/", nil)
	n := passed()
	_, err = f.OnAuthorization(context.Background(), &domain.AuthorizationContext{Action: ac}, n.next)
	assert.ErrorContains(t, err, "not bool")
	assert.Equal(t, 0, n.calls)
}

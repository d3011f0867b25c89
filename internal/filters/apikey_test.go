package filters

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
)

func TestAPIKeyFilter(t *testing.T) {
	f := NewAPIKeyFilter([]APIKey{
		{KeyHash: HashAPIKey("sk-alice"), Principal: "alice", Scopes: []string{"greet"}},
	}, nil)

	tests := []struct {
		name      string
		header    string
		wantState domain.ChainState
		wantNext  int
	}{
		{"valid key", "Bearer sk-alice", domain.StatePassed, 1},
		{"lowercase scheme", "bearer sk-alice", domain.StatePassed, 1},
		{"unknown key", "Bearer sk-mallory", domain.StateDenied, 0},
		{"missing header", "", domain.StateDenied, 0},
		{"wrong scheme", "Basic sk-alice", domain.StateDenied, 0},
		{"no scheme", "sk-alice", domain.StateDenied, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac, _ := newActionContext("GET", "/greet/alice", nil)
			if tt.header != "" {
				ac.Request.Header.Set("Authorization", tt.header)
			}
			n := passed()

			tr, err := f.OnAuthorization(context.Background(), &domain.AuthorizationContext{Action: ac}, n.next)
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, tr.State)
			assert.False(t, tr.HasOutcome())
			assert.Equal(t, tt.wantNext, n.calls)

			p, ok := ac.Principal()
			if tt.wantNext == 1 {
				require.True(t, ok)
				assert.Equal(t, "alice", p.Name)
				assert.True(t, p.HasScope("greet"))
			} else {
				assert.False(t, ok)
			}
		})
	}
}

func TestAPIKeyFilter_UppercaseHashConfig(t *testing.T) {
	hash := HashAPIKey("sk-bob")
	f := NewAPIKeyFilter([]APIKey{{KeyHash: strings.ToUpper(hash), Principal: "bob"}}, nil)

	ac, _ := newActionContext("GET", "/", nil)
	withBearer(ac, "sk-bob")

	tr, err := f.OnAuthorization(context.Background(), &domain.AuthorizationContext{Action: ac}, passed().next)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePassed, tr.State)
}

func TestExtractAPIKey(t *testing.T) {
	_, err := ExtractAPIKey(nil)
	assert.Error(t, err)

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer abc def")
	key, err := ExtractAPIKey(r)
	require.NoError(t, err)
	assert.Equal(t, "abc def", key)
}

func TestHashAPIKey(t *testing.T) {
	assert.Equal(t,
		"9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		HashAPIKey("test"))
}

package filters

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/core/ports"
	"github.com/tjfontaine/actionpipe/internal/pkg/config"
)

// Dependencies are the shared collaborators config-built filters may need.
type Dependencies struct {
	Logger     *slog.Logger
	Store      ports.InvocationStore
	Registerer prometheus.Registerer
	HTTPClient *http.Client
}

// NewFromConfig builds global filter descriptors from configuration.
func NewFromConfig(cfgs []config.FilterConfig, deps Dependencies) ([]domain.FilterDescriptor, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	out := make([]domain.FilterDescriptor, 0, len(cfgs))
	for i, cfg := range cfgs {
		name := cfg.Name
		if name == "" {
			name = cfg.Type
		}

		f, err := build(name, cfg, deps)
		if err != nil {
			return nil, fmt.Errorf("filters[%d] %s: %w", i, name, err)
		}
		out = append(out, domain.FilterDescriptor{
			Name:   name,
			Filter: f,
			Order:  cfg.Order,
			Scope:  domain.ScopeGlobal,
			When:   cfg.When,
		})
	}
	return out, nil
}

func build(name string, cfg config.FilterConfig, deps Dependencies) (any, error) {
	switch cfg.Type {
	case "api_key":
		keys := make([]APIKey, len(cfg.Keys))
		for i, k := range cfg.Keys {
			if k.KeyHash == "" {
				return nil, fmt.Errorf("keys[%d]: key_hash required", i)
			}
			keys[i] = APIKey{KeyHash: k.KeyHash, Principal: k.Principal, Scopes: k.Scopes}
		}
		return NewAPIKeyFilter(keys, deps.Logger), nil
	case "policy":
		return NewPolicyFilter(cfg.Expression, cfg.DenyStatus)
	case "webhook":
		return NewWebhookFilter(WebhookConfig{
			Name:    name,
			URL:     cfg.URL,
			Timeout: cfg.Timeout,
			OnError: WebhookDecision(cfg.OnError),
			Retries: cfg.Retries,
			Headers: cfg.Headers,

			AllowPrivateNetwork: cfg.AllowPrivateNetwork,
			Client:              deps.HTTPClient,
			Logger:              deps.Logger,
		})
	case "validation":
		return ValidationFilter{}, nil
	case "headers":
		return NewHeadersFilter(cfg.Headers), nil
	case "logging":
		return NewLoggingFilter(deps.Logger), nil
	case "metrics":
		return NewMetricsFilter(deps.Registerer), nil
	case "audit":
		if deps.Store == nil {
			return nil, fmt.Errorf("audit filter requires storage")
		}
		return NewAuditFilter(deps.Store, deps.Logger), nil
	default:
		return nil, fmt.Errorf("unknown filter type %q", cfg.Type)
	}
}

package filters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/core/ports"
	"github.com/tjfontaine/actionpipe/internal/outcome"
	"github.com/tjfontaine/actionpipe/internal/pkg/safehttp"
)

// WebhookDecision is what the webhook answers.
type WebhookDecision string

const (
	DecisionAllow WebhookDecision = "allow"
	DecisionDeny  WebhookDecision = "deny"
)

// WebhookRequest is the JSON body posted to the webhook.
type WebhookRequest struct {
	RequestID  string              `json:"request_id,omitempty"`
	Action     string              `json:"action"`
	Controller string              `json:"controller"`
	Method     string              `json:"method"`
	Path       string              `json:"path"`
	Route      map[string]string   `json:"route,omitempty"`
	Query      map[string][]string `json:"query,omitempty"`
	Principal  *domain.Principal   `json:"principal,omitempty"`
}

// WebhookResponse is the JSON body the webhook returns.
type WebhookResponse struct {
	Decision WebhookDecision `json:"decision"`
	Reason   string          `json:"reason,omitempty"`
	// Status overrides the deny status (default 403).
	Status int `json:"status,omitempty"`
}

// WebhookFilter delegates authorization to an external HTTP endpoint.
type WebhookFilter struct {
	name    string
	url     string
	onError WebhookDecision // Decision to take on transport failure (allow or deny)
	retries int
	headers map[string]string
	client  *http.Client
	logger  *slog.Logger
}

// WebhookConfig configures a webhook filter.
type WebhookConfig struct {
	Name    string
	URL     string
	Timeout time.Duration
	OnError WebhookDecision // "allow" or "deny" (default: deny)
	Retries int
	Headers map[string]string
	// AllowPrivateNetwork permits webhooks on loopback and private
	// addresses with the default client.
	AllowPrivateNetwork bool
	// Client overrides the HTTP client; Timeout still applies when set.
	Client *http.Client
	Logger *slog.Logger
}

// NewWebhookFilter creates a new webhook filter.
func NewWebhookFilter(cfg WebhookConfig) (*WebhookFilter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook %s: url required", cfg.Name)
	}
	onError := cfg.OnError
	switch onError {
	case "":
		onError = DecisionDeny // Default to fail-closed
	case DecisionAllow, DecisionDeny:
	default:
		return nil, fmt.Errorf("webhook %s: invalid on_error %q", cfg.Name, onError)
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{}
		if !cfg.AllowPrivateNetwork {
			client = safehttp.NewClient(0)
		}
	}
	if cfg.Timeout > 0 {
		c := *client
		c.Timeout = cfg.Timeout
		client = &c
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &WebhookFilter{
		name:    cfg.Name,
		url:     cfg.URL,
		onError: onError,
		retries: cfg.Retries,
		headers: cfg.Headers,
		client:  client,
		logger:  logger,
	}, nil
}

func (f *WebhookFilter) OnAuthorization(ctx context.Context, c *domain.AuthorizationContext, next domain.Next) (domain.Transition, error) {
	resp, err := f.call(ctx, f.describe(c.Action))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Pending(), ctxErr
		}
		return f.handleError(ctx, next, err)
	}

	if resp.Decision == DecisionDeny {
		status := resp.Status
		if status == 0 {
			status = http.StatusForbidden
		}
		f.logger.InfoContext(ctx, "webhook denied request",
			slog.String("filter", f.name),
			slog.String("action", c.Action.ActionName()),
			slog.String("reason", resp.Reason),
		)
		reason := resp.Reason
		if reason == "" {
			reason = "request denied"
		}
		apiErr := domain.ErrPermission(reason).
			WithCode(domain.ErrorCodeWebhookDenied).
			WithStatusCode(status)
		return domain.Completed(outcome.NewProblem(apiErr)), nil
	}
	return next(ctx)
}

// call posts req, retrying transport and status failures.
func (f *WebhookFilter) call(ctx context.Context, req *WebhookRequest) (*WebhookResponse, error) {
	var lastErr error

	attempts := f.retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := f.doRequest(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (f *WebhookFilter) doRequest(ctx context.Context, in *WebhookRequest) (*WebhookResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var out WebhookResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal webhook response: %w", err)
	}

	switch out.Decision {
	case DecisionAllow, DecisionDeny:
	case "":
		out.Decision = DecisionAllow
	default:
		return nil, fmt.Errorf("invalid decision from webhook: %s", out.Decision)
	}
	return &out, nil
}

func (f *WebhookFilter) handleError(ctx context.Context, next domain.Next, err error) (domain.Transition, error) {
	f.logger.WarnContext(ctx, "webhook failed",
		slog.String("filter", f.name),
		slog.String("on_error", string(f.onError)),
		slog.String("error", err.Error()),
	)
	if f.onError == DecisionAllow {
		return next(ctx)
	}
	// Fail-closed: deny without an outcome
	return domain.Denied(), nil
}

func (f *WebhookFilter) describe(ac *domain.ActionContext) *WebhookRequest {
	req := &WebhookRequest{
		RequestID: ac.RequestID,
		Action:    ac.ActionName(),
		Route:     ac.RouteValues,
	}
	if ac.Descriptor != nil {
		req.Controller = ac.Descriptor.Controller
	}
	if r := ac.Request; r != nil {
		req.Method = r.Method
		req.Path = r.URL.Path
		if q := r.URL.Query(); len(q) > 0 {
			req.Query = q
		}
	}
	if p, ok := ac.Principal(); ok {
		req.Principal = p
	}
	return req
}

var _ ports.AuthorizationFilter = (*WebhookFilter)(nil)

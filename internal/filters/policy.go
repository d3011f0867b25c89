package filters

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/cel-go/cel"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/core/ports"
	"github.com/tjfontaine/actionpipe/internal/outcome"
)

// PolicyFilter authorizes requests with a CEL expression. The expression
// sees two maps:
//   - request:   method, path, action, controller, headers, query, route
//   - principal: name, scopes (empty when unauthenticated)
//
// A false result completes the chain with DenyStatus.
type PolicyFilter struct {
	expression string
	program    cel.Program
	denyStatus int
}

// NewPolicyFilter compiles expression. denyStatus defaults to 403.
func NewPolicyFilter(expression string, denyStatus int) (*PolicyFilter, error) {
	if expression == "" {
		return nil, fmt.Errorf("policy: empty expression")
	}
	if denyStatus == 0 {
		denyStatus = http.StatusForbidden
	}

	mapType := cel.MapType(cel.StringType, cel.DynType)
	env, err := cel.NewEnv(
		cel.Variable("request", mapType),
		cel.Variable("principal", mapType),
	)
	if err != nil {
		return nil, fmt.Errorf("policy: create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("policy: compile %q: %w", expression, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("policy: %q must evaluate to bool, got %s", expression, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("policy: program %q: %w", expression, err)
	}

	return &PolicyFilter{
		expression: expression,
		program:    prg,
		denyStatus: denyStatus,
	}, nil
}

func (f *PolicyFilter) OnAuthorization(ctx context.Context, c *domain.AuthorizationContext, next domain.Next) (domain.Transition, error) {
	out, _, err := f.program.ContextEval(ctx, policyActivation(c.Action))
	if err != nil {
		return domain.Pending(), fmt.Errorf("policy %q: %w", f.expression, err)
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		return domain.Pending(), fmt.Errorf("policy %q: result %v is not bool", f.expression, out.Value())
	}
	if !allowed {
		apiErr := domain.ErrPermission("request denied by policy").
			WithCode(domain.ErrorCodePolicyDenied).
			WithStatusCode(f.denyStatus)
		return domain.Completed(outcome.NewProblem(apiErr)), nil
	}
	return next(ctx)
}

func policyActivation(ac *domain.ActionContext) map[string]any {
	req := map[string]any{
		"method":     "",
		"path":       "",
		"action":     ac.ActionName(),
		"controller": "",
		"headers":    map[string]any{},
		"query":      map[string]any{},
		"route":      stringMap(ac.RouteValues),
	}
	if ac.Descriptor != nil {
		req["controller"] = ac.Descriptor.Controller
	}
	if r := ac.Request; r != nil {
		req["method"] = r.Method
		req["path"] = r.URL.Path
		headers := make(map[string]any, len(r.Header))
		for k := range r.Header {
			headers[http.CanonicalHeaderKey(k)] = r.Header.Get(k)
		}
		req["headers"] = headers
		query := make(map[string]any)
		for k, v := range r.URL.Query() {
			if len(v) > 0 {
				query[k] = v[0]
			}
		}
		req["query"] = query
	}

	principal := map[string]any{"name": "", "scopes": []string{}}
	if p, ok := ac.Principal(); ok {
		principal["name"] = p.Name
		if p.Scopes != nil {
			principal["scopes"] = p.Scopes
		}
	}

	return map[string]any{"request": req, "principal": principal}
}

func stringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var _ ports.AuthorizationFilter = (*PolicyFilter)(nil)

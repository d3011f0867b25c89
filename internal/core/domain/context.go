package domain

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"reflect"
)

// ActionContext is the ambient request context shared by every stage of one
// invocation.
type ActionContext struct {
	Request     *http.Request
	Response    http.ResponseWriter
	RouteValues map[string]string
	RequestID   string
	Descriptor  *ActionDescriptor
	// Items carries values filters hand to later stages (e.g. the principal).
	Items map[string]any

	body     []byte
	bodyRead bool
	bodyErr  error
}

// NewActionContext builds a context for one request.
func NewActionContext(w http.ResponseWriter, r *http.Request, d *ActionDescriptor, routeValues map[string]string) *ActionContext {
	if routeValues == nil {
		routeValues = map[string]string{}
	}
	return &ActionContext{
		Request:     r,
		Response:    w,
		RouteValues: routeValues,
		Descriptor:  d,
		Items:       make(map[string]any),
	}
}

// Body reads the request body once and returns the buffered bytes on every
// later call. Slots resolved after the first reader still see the payload.
func (c *ActionContext) Body() ([]byte, error) {
	if c.bodyRead {
		return c.body, c.bodyErr
	}
	c.bodyRead = true
	if c.Request == nil || c.Request.Body == nil {
		return nil, nil
	}
	c.body, c.bodyErr = io.ReadAll(c.Request.Body)
	if c.bodyErr != nil {
		c.bodyErr = fmt.Errorf("read request body: %w", c.bodyErr)
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(c.body))
	return c.body, c.bodyErr
}

// ActionName returns the descriptor name, or "" when none is attached.
func (c *ActionContext) ActionName() string {
	if c.Descriptor == nil {
		return ""
	}
	return c.Descriptor.Name
}

// AuthorizationContext is the input of the authorization chain.
type AuthorizationContext struct {
	Action *ActionContext
}

// ActionExecutingContext is the input of the action chain.
type ActionExecutingContext struct {
	Action     *ActionContext
	ResultType reflect.Type
	Validation *ValidationState

	arguments map[string]any
}

// NewActionExecutingContext wraps the resolved inputs. The map is not copied
// and must not be mutated afterwards.
func NewActionExecutingContext(ac *ActionContext, arguments map[string]any, resultType reflect.Type, vs *ValidationState) *ActionExecutingContext {
	return &ActionExecutingContext{
		Action:     ac,
		ResultType: resultType,
		Validation: vs,
		arguments:  arguments,
	}
}

// Argument returns the resolved value for slot name.
func (c *ActionExecutingContext) Argument(name string) (any, bool) {
	v, ok := c.arguments[name]
	return v, ok
}

// ArgumentNames returns the names present in the resolved input map.
func (c *ActionExecutingContext) ArgumentNames() []string {
	names := make([]string, 0, len(c.arguments))
	for name := range c.arguments {
		names = append(names, name)
	}
	return names
}

// Arguments exposes the resolved input map for the terminal stage.
func (c *ActionExecutingContext) Arguments() map[string]any {
	return c.arguments
}

// ResultContext is the input of the result chain. Filters may replace
// Outcome before calling next; the terminal stage executes whatever is set.
type ResultContext struct {
	Action  *ActionContext
	Outcome Outcome
	// Validation is the invocation's validation state, read-only here.
	Validation *ValidationState
}

// ItemPrincipal is the Items key under which authentication filters store
// the authenticated *Principal.
const ItemPrincipal = "principal"

// Principal is the authenticated caller.
type Principal struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes,omitempty"`
}

// HasScope reports whether the principal was granted scope.
func (p *Principal) HasScope(scope string) bool {
	if p == nil {
		return false
	}
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Principal returns the authenticated caller, if any.
func (c *ActionContext) Principal() (*Principal, bool) {
	p, ok := c.Items[ItemPrincipal].(*Principal)
	return p, ok && p != nil
}

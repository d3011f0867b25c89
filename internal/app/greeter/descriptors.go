package greeter

import (
	"context"
	"fmt"
	"net/http"
	"reflect"

	"github.com/tjfontaine/actionpipe/internal/activation"
	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/filters"
)

var (
	stringType   = reflect.TypeFor[string]()
	boolType     = reflect.TypeFor[bool]()
	createType   = reflect.TypeFor[CreateGreeting]()
	outcomeType  = reflect.TypeFor[domain.Outcome]()
	createSchema = []byte(`{
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": "string", "minLength": 1, "maxLength": 64},
    "language": {"type": "string", "enum": ["en", "fr", "es", "de"]},
    "meta": {
      "type": "object",
      "properties": {"tag": {"type": "string", "maxLength": 32}}
    }
  },
  "additionalProperties": false
}`)
)

// Register adds g to the registry as a singleton.
func (g *Greeter) Register(r *activation.Registry) error {
	return r.Singleton(ControllerName, g)
}

// Descriptors returns the greeter routes.
func (g *Greeter) Descriptors() []*domain.ActionDescriptor {
	return []*domain.ActionDescriptor{
		{
			Name:       "greeter.hello",
			Controller: ControllerName,
			Method:     http.MethodGet,
			Path:       "/hello/{name}",
			Slots: []domain.InputSlot{
				{Name: "name", From: domain.BindRoute, Type: stringType, Validate: "required,max=64"},
				{Name: "lang", From: domain.BindQuery, Type: stringType},
				{Name: "excited", From: domain.BindQuery, Type: boolType, Default: false},
				{Name: "accept_language", From: domain.BindHeader, Key: "Accept-Language", Type: stringType},
			},
			ResultType: stringType,
			Filters: []domain.FilterDescriptor{
				{Name: "validation", Filter: filters.ValidationFilter{}},
			},
			Target: &domain.Target{
				Params: []domain.Param{
					{Name: "name", Type: stringType},
					{Name: "lang", Type: stringType},
					{Name: "excited", Type: boolType},
					{Name: "accept_language", Type: stringType},
				},
				Invoke: invoke(func(ctx context.Context, g *Greeter, args []any) (any, error) {
					return g.Hello(ctx, arg[string](args, 0), arg[string](args, 1), arg[bool](args, 2), arg[string](args, 3))
				}),
			},
		},
		{
			Name:       "greeter.create",
			Controller: ControllerName,
			Method:     http.MethodPost,
			Path:       "/greetings",
			Slots: []domain.InputSlot{
				{Name: "greeting", Source: domain.SourceBody, Type: createType, Schema: createSchema},
				{Name: "tag", From: domain.BindBodyPath, Path: ".meta.tag", Type: stringType},
			},
			ResultType: outcomeType,
			Filters: []domain.FilterDescriptor{
				{Name: "validation", Filter: filters.ValidationFilter{}},
			},
			Target: &domain.Target{
				Params: []domain.Param{
					{Name: "greeting", Type: createType},
					{Name: "tag", Type: stringType},
				},
				Invoke: invoke(func(ctx context.Context, g *Greeter, args []any) (any, error) {
					return g.Create(ctx, arg[CreateGreeting](args, 0), arg[string](args, 1))
				}),
			},
		},
		{
			Name:       "greeter.get",
			Controller: ControllerName,
			Method:     http.MethodGet,
			Path:       "/greetings/{id}",
			Slots: []domain.InputSlot{
				{Name: "id", From: domain.BindRoute, Type: stringType, Validate: "uuid"},
			},
			ResultType: outcomeType,
			Filters: []domain.FilterDescriptor{
				{Name: "validation", Filter: filters.ValidationFilter{}},
			},
			Target: &domain.Target{
				Params: []domain.Param{{Name: "id", Type: stringType}},
				Invoke: invoke(func(ctx context.Context, g *Greeter, args []any) (any, error) {
					return g.Get(ctx, arg[string](args, 0))
				}),
			},
		},
		{
			// Declared without logic; the invoker answers 404.
			Name:       "greeter.delete",
			Controller: ControllerName,
			Method:     http.MethodDelete,
			Path:       "/greetings/{id}",
		},
	}
}

// invoke adapts a typed call to domain.InvokeFunc.
func invoke(fn func(ctx context.Context, g *Greeter, args []any) (any, error)) domain.InvokeFunc {
	return func(ctx context.Context, instance any, args []any) (any, error) {
		g, ok := instance.(*Greeter)
		if !ok {
			return nil, fmt.Errorf("greeter: unexpected instance %T", instance)
		}
		return fn(ctx, g, args)
	}
}

// arg returns args[i] as T, or the zero T.
func arg[T any](args []any, i int) T {
	var zero T
	if i >= len(args) {
		return zero
	}
	v, ok := args[i].(T)
	if !ok {
		return zero
	}
	return v
}

// Package domain holds the data model shared by the invoker, its chains and
// the collaborators plugged into them.
package domain

import (
	"context"
	"reflect"
)

// SourceKind selects which resolution strategy applies to an input slot.
type SourceKind int

const (
	// SourceBound resolves the slot through the value binder.
	SourceBound SourceKind = iota
	// SourceBody resolves the slot by deserializing the request body.
	SourceBody
)

func (k SourceKind) String() string {
	switch k {
	case SourceBody:
		return "body"
	default:
		return "bound"
	}
}

// BindingSource names where a bound slot reads its raw value from.
type BindingSource string

const (
	BindRoute    BindingSource = "route"
	BindQuery    BindingSource = "query"
	BindHeader   BindingSource = "header"
	BindForm     BindingSource = "form"
	BindBodyPath BindingSource = "body_path"
)

// InputSlot is one named input an action requires from the request.
type InputSlot struct {
	// Name is unique within a descriptor and keys the resolved input map.
	Name string
	// Source selects body deserialization or value binding. Never both.
	Source SourceKind
	// From is the lookup location for bound slots. Defaults to query.
	From BindingSource
	// Key overrides the lookup key (route param, query key, header name).
	// Empty means Name.
	Key string
	// Path is a jq expression evaluated over the JSON body for BindBodyPath.
	Path string
	// Type is the Go type the value is converted to.
	Type reflect.Type
	// Default is used when the request carries no value for the slot.
	Default any
	// Validate is a go-playground/validator tag applied to bound values.
	Validate string
	// Schema is an optional JSON schema applied to body slots.
	Schema []byte
}

// LookupKey returns the key used to find the slot's raw value.
func (s InputSlot) LookupKey() string {
	if s.Key != "" {
		return s.Key
	}
	return s.Name
}

// Param is one formal input of a target, in call order.
type Param struct {
	Name    string
	Type    reflect.Type
	Default any
}

// DefaultValue returns the value used when no resolved input matches the
// parameter name.
func (p Param) DefaultValue() any {
	if p.Default != nil {
		return p.Default
	}
	if p.Type != nil {
		return reflect.Zero(p.Type).Interface()
	}
	return nil
}

// InvokeFunc calls the action logic on instance with positional arguments.
type InvokeFunc func(ctx context.Context, instance any, args []any) (any, error)

// Target is the resolved handle of an action's logic. It is captured when the
// descriptor is built so that invocation never dispatches by name.
type Target struct {
	Params []Param
	Invoke InvokeFunc
}

// ActionDescriptor is resolved once per route and is read-only afterwards.
type ActionDescriptor struct {
	Name       string
	Controller string
	Method     string
	Path       string
	// Target is nil when the route has no mapped logic.
	Target *Target
	Slots  []InputSlot
	// ResultType is the declared return type of the target. Nil means the
	// action declares no result.
	ResultType reflect.Type
	// Filters are the filters declared on the action itself.
	Filters []FilterDescriptor
}

// FilterScope records where a filter was declared.
type FilterScope int

const (
	ScopeGlobal FilterScope = iota
	ScopeAction
)

// FilterDescriptor wraps a filter with its ordering metadata. Filter is
// classified by the interfaces it implements; one value may take part in
// several chains.
type FilterDescriptor struct {
	Name   string
	Filter any
	Order  int
	Scope  FilterScope
	// When is an optional expression evaluated over the descriptor; the
	// filter applies only when it yields true.
	When string
}

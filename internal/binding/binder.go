// Package binding resolves action input slots from HTTP requests.
package binding

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
)

// Binder resolves bound slots from route values, query string, headers,
// url-encoded forms or a jq path into the JSON body.
type Binder struct {
	validate *validator.Validate
	paths    *pathCache
}

// NewBinder returns a ready Binder. It is safe for concurrent use.
func NewBinder() *Binder {
	return &Binder{
		validate: newValidate(),
		paths:    newPathCache(),
	}
}

// Bind implements ports.ModelBinder. Missing values fall back to the slot
// default; conversion and validation failures are recorded in vs and the
// default is returned.
func (b *Binder) Bind(ctx context.Context, ac *domain.ActionContext, vs *domain.ValidationState, slot domain.InputSlot) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if slot.Type != nil && slot.Type.Kind() == reflect.Struct && slot.From != domain.BindBodyPath {
		value, err := b.bindStruct(ac, vs, slot)
		if err != nil {
			return nil, err
		}
		validateValue(b.validate, vs, slot.Name, value, slot.Validate)
		return value, nil
	}

	raw, found, err := b.lookup(ctx, ac, slot)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		vs.AddError(slot.Name, err)
		return defaultFor(slot), nil
	}
	if !found {
		value := defaultFor(slot)
		if slot.Validate != "" {
			record(vs, slot.Name, b.validate.Var(value, slot.Validate))
		}
		return value, nil
	}

	vs.SetAttempted(slot.Name, raw)
	value, err := convert(raw, slot.Type)
	if err != nil {
		vs.AddError(slot.Name, fmt.Errorf("invalid value for %s: %w", slot.Name, err))
		return defaultFor(slot), nil
	}
	validateValue(b.validate, vs, slot.Name, value, slot.Validate)
	return value, nil
}

func (b *Binder) lookup(ctx context.Context, ac *domain.ActionContext, slot domain.InputSlot) (any, bool, error) {
	key := slot.LookupKey()
	r := ac.Request

	switch slot.From {
	case domain.BindRoute:
		v, ok := ac.RouteValues[key]
		return v, ok, nil
	case domain.BindHeader:
		if r == nil {
			return nil, false, nil
		}
		vals := r.Header.Values(key)
		return multi(vals, slot.Type), len(vals) > 0, nil
	case domain.BindForm:
		form, err := formValues(ac)
		if err != nil {
			return nil, false, err
		}
		vals, ok := form[key]
		return multi(vals, slot.Type), ok, nil
	case domain.BindBodyPath:
		return b.lookupBodyPath(ctx, ac, slot)
	default:
		if r == nil {
			return nil, false, nil
		}
		vals, ok := r.URL.Query()[key]
		return multi(vals, slot.Type), ok, nil
	}
}

func (b *Binder) lookupBodyPath(ctx context.Context, ac *domain.ActionContext, slot domain.InputSlot) (any, bool, error) {
	body, err := ac.Body()
	if err != nil {
		return nil, false, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, false, nil
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false, fmt.Errorf("request body is not valid JSON")
	}

	path := slot.Path
	if path == "" {
		path = "." + slot.LookupKey()
	}
	return b.paths.Evaluate(ctx, path, doc)
}

// bindStruct fills a struct slot field by field from the query string, or
// from the form when the slot reads from it.
func (b *Binder) bindStruct(ac *domain.ActionContext, vs *domain.ValidationState, slot domain.InputSlot) (any, error) {
	var values url.Values
	switch {
	case slot.From == domain.BindForm:
		form, err := formValues(ac)
		if err != nil {
			vs.AddError(slot.Name, err)
			return defaultFor(slot), nil
		}
		values = form
	case ac.Request != nil:
		values = ac.Request.URL.Query()
	}

	out := reflect.New(slot.Type).Elem()
	for i := 0; i < slot.Type.NumField(); i++ {
		f := slot.Type.Field(i)
		if !f.IsExported() {
			continue
		}
		key := fieldKey(f)
		if key == "" {
			continue
		}
		vals, ok := values[key]
		if !ok {
			continue
		}
		v, err := convert(multi(vals, f.Type), f.Type)
		if err != nil {
			vs.AddError(slot.Name+"."+key, err)
			continue
		}
		out.Field(i).Set(reflect.ValueOf(v))
	}
	return out.Interface(), nil
}

// fieldKey is the query key for a struct field: the query tag, then the json
// tag, then the field name.
func fieldKey(f reflect.StructField) string {
	for _, tag := range []string{"query", "form", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func formValues(ac *domain.ActionContext) (url.Values, error) {
	if ac.Request == nil {
		return url.Values{}, nil
	}
	ct := ac.Request.Header.Get("Content-Type")
	if ct == "" {
		return url.Values{}, nil
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil || mt != "application/x-www-form-urlencoded" {
		return url.Values{}, nil
	}
	body, err := ac.Body()
	if err != nil {
		return nil, err
	}
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("malformed form body: %w", err)
	}
	return form, nil
}

// multi keeps every value for slice targets and the first otherwise.
func multi(vals []string, t reflect.Type) any {
	if t != nil && t.Kind() == reflect.Slice {
		return vals
	}
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func defaultFor(slot domain.InputSlot) any {
	if slot.Default != nil {
		return slot.Default
	}
	if slot.Type != nil {
		return reflect.Zero(slot.Type).Interface()
	}
	return nil
}

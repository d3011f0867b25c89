package binding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
)

// JSONFormatter resolves body slots by decoding a JSON request body.
type JSONFormatter struct {
	validate *validator.Validate
	schemas  *schemaCache
	// DisallowUnknownFields rejects bodies with fields the slot type lacks.
	DisallowUnknownFields bool
}

// NewJSONFormatter returns a ready formatter. It is safe for concurrent use.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{
		validate: newValidate(),
		schemas:  newSchemaCache(),
	}
}

// Read implements ports.InputFormatter.
func (f *JSONFormatter) Read(ctx context.Context, ac *domain.ActionContext, vs *domain.ValidationState, slot domain.InputSlot) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if ac.Request != nil {
		if ct := ac.Request.Header.Get("Content-Type"); ct != "" {
			mt, _, err := mime.ParseMediaType(ct)
			if err != nil || !isJSON(mt) {
				vs.AddMessage(slot.Name, fmt.Sprintf("unsupported content type %q", ct))
				return defaultFor(slot), nil
			}
		}
	}

	body, err := ac.Body()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		vs.AddError(slot.Name, err)
		return defaultFor(slot), nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		vs.AddMessage(slot.Name, "request body is required")
		return defaultFor(slot), nil
	}

	if len(slot.Schema) > 0 {
		ok, err := f.checkSchema(vs, slot, body)
		if err != nil {
			return nil, err
		}
		if !ok {
			return defaultFor(slot), nil
		}
	}

	value, err := f.decode(body, slot.Type)
	if err != nil {
		vs.AddError(slot.Name, err)
		return defaultFor(slot), nil
	}
	validateValue(f.validate, vs, slot.Name, value, slot.Validate)
	return value, nil
}

func (f *JSONFormatter) decode(body []byte, t reflect.Type) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	if f.DisallowUnknownFields {
		dec.DisallowUnknownFields()
	}

	if t == nil {
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("request body is not valid JSON: %w", err)
		}
		return v, nil
	}

	p := reflect.New(t)
	if err := dec.Decode(p.Interface()); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, fmt.Errorf("field %s must be %s", typeErr.Field, typeErr.Type)
		}
		return nil, fmt.Errorf("request body is not a valid %s: %w", t, err)
	}
	return p.Elem().Interface(), nil
}

// checkSchema reports whether body satisfies the slot schema. A schema that
// does not compile is a configuration fault, not a client error.
func (f *JSONFormatter) checkSchema(vs *domain.ValidationState, slot domain.InputSlot, body []byte) (bool, error) {
	sch, err := f.schemas.get(slot.Schema)
	if err != nil {
		return false, fmt.Errorf("slot %q: %w", slot.Name, err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		vs.AddMessage(slot.Name, "request body is not valid JSON")
		return false, nil
	}

	if err := sch.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			vs.AddError(slot.Name, err)
			return false, nil
		}
		for _, v := range violations(verr) {
			key := slot.Name
			if len(v.location) > 0 {
				key += "." + strings.Join(v.location, ".")
			}
			vs.AddMessage(key, v.message)
		}
		return false, nil
	}
	return true, nil
}

type violation struct {
	location []string
	message  string
}

var printer = message.NewPrinter(language.English)

// violations flattens a jsonschema error tree into its leaves.
func violations(verr *jsonschema.ValidationError) []violation {
	if len(verr.Causes) == 0 {
		return []violation{{location: verr.InstanceLocation, message: verr.ErrorKind.LocalizedString(printer)}}
	}
	var out []violation
	for _, cause := range verr.Causes {
		out = append(out, violations(cause)...)
	}
	return out
}

func isJSON(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// schemaCache compiles slot schemas once. Keyed by the raw schema text.
type schemaCache struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

func newSchemaCache() *schemaCache {
	return &schemaCache{cache: make(map[string]*jsonschema.Schema)}
}

func (c *schemaCache) get(raw []byte) (*jsonschema.Schema, error) {
	key := string(raw)

	c.mu.RLock()
	sch, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return sch, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if sch, ok := c.cache[key]; ok {
		return sch, nil
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(key))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	url := fmt.Sprintf("actionpipe://slot-schema/%d", len(c.cache))
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat()
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err = compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	c.cache[key] = sch
	return sch, nil
}

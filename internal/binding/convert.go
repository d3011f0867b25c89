package binding

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cast"
)

var durationType = reflect.TypeOf(time.Duration(0))

// convert coerces raw into t. Raw values are strings from the request or
// decoded JSON values from a body path.
func convert(raw any, t reflect.Type) (any, error) {
	if t == nil {
		return raw, nil
	}
	if raw != nil && reflect.TypeOf(raw) == t {
		return raw, nil
	}
	if t == durationType {
		return cast.ToDurationE(single(raw))
	}

	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		v, err := cast.ToStringE(single(raw))
		if err != nil {
			return nil, err
		}
		out.SetString(v)
	case reflect.Bool:
		v, err := cast.ToBoolE(single(raw))
		if err != nil {
			return nil, err
		}
		out.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := cast.ToInt64E(single(raw))
		if err != nil {
			return nil, err
		}
		if out.OverflowInt(v) {
			return nil, fmt.Errorf("value %d overflows %s", v, t)
		}
		out.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := cast.ToUint64E(single(raw))
		if err != nil {
			return nil, err
		}
		if out.OverflowUint(v) {
			return nil, fmt.Errorf("value %d overflows %s", v, t)
		}
		out.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := cast.ToFloat64E(single(raw))
		if err != nil {
			return nil, err
		}
		if out.OverflowFloat(v) {
			return nil, fmt.Errorf("value %v overflows %s", v, t)
		}
		out.SetFloat(v)
	case reflect.Slice:
		return convertSlice(raw, t)
	case reflect.Pointer:
		elem, err := convert(raw, t.Elem())
		if err != nil {
			return nil, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(reflect.ValueOf(elem))
		return p.Interface(), nil
	case reflect.Struct, reflect.Map:
		return roundTrip(raw, t)
	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
	return out.Interface(), nil
}

func convertSlice(raw any, t reflect.Type) (any, error) {
	var items []any
	switch r := raw.(type) {
	case []string:
		items = make([]any, len(r))
		for i, s := range r {
			items[i] = s
		}
	case []any:
		items = r
	default:
		items = []any{raw}
	}

	out := reflect.MakeSlice(t, 0, len(items))
	for i, item := range items {
		v, err := convert(item, t.Elem())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = reflect.Append(out, reflect.ValueOf(v))
	}
	return out.Interface(), nil
}

// roundTrip converts structured values (typically decoded JSON) by encoding
// and decoding them into t.
func roundTrip(raw any, t reflect.Type) (any, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	p := reflect.New(t)
	if err := json.Unmarshal(b, p.Interface()); err != nil {
		return nil, fmt.Errorf("value is not a valid %s", t)
	}
	return p.Elem().Interface(), nil
}

// single picks the first value of a repeated request parameter.
func single(raw any) any {
	if ss, ok := raw.([]string); ok {
		if len(ss) == 0 {
			return ""
		}
		return ss[0]
	}
	return raw
}

package invoker

import (
	"context"
	"fmt"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
)

// resolveInputs resolves every slot in declaration order. Later slots may
// rely on side effects of earlier ones, such as a consumed body.
func (inv *Invoker) resolveInputs(ctx context.Context, ac *domain.ActionContext, d *domain.ActionDescriptor, vs *domain.ValidationState) (map[string]any, error) {
	values := make(map[string]any, len(d.Slots))
	for _, slot := range d.Slots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var (
			value any
			err   error
		)
		if slot.Source == domain.SourceBody {
			value, err = inv.formatter.Read(ctx, ac, vs, slot)
		} else {
			value, err = inv.binder.Bind(ctx, ac, vs, slot)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve %s slot %q: %w", slot.Source, slot.Name, err)
		}
		values[slot.Name] = value
	}
	return values, nil
}

// Materialize builds the positional argument list for params. Values are
// looked up by parameter name; a parameter with no entry in values gets its
// default, and its name is reported in defaulted. A name mismatch between
// slots and parameters is therefore not an error.
func Materialize(params []domain.Param, values map[string]any) (args []any, defaulted []string) {
	args = make([]any, len(params))
	for i, p := range params {
		if v, ok := values[p.Name]; ok {
			args[i] = v
			continue
		}
		args[i] = p.DefaultValue()
		defaulted = append(defaulted, p.Name)
	}
	return args, defaulted
}

package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/strata-io/strata/internal/runctx"
)

// Resolver evaluates lookup expressions in arbitrarily nested values against
// one run context.
type Resolver struct {
	registry *Registry
	rctx     *runctx.Context
}

// NewResolver returns a resolver bound to a registry and run context.
func NewResolver(registry *Registry, rctx *runctx.Context) *Resolver {
	return &Resolver{registry: registry, rctx: rctx}
}

// Resolve walks value (strings, slices, and maps, nested arbitrarily) and
// replaces every lookup expression with its evaluated result.
func (r *Resolver) Resolve(ctx context.Context, value any) (any, error) {
	switch v := value.(type) {
	case string:
		return r.resolveString(ctx, v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			resolved, err := r.Resolve(ctx, item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			resolved, err := r.Resolve(ctx, item)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}

// resolveString evaluates all expressions in one raw string.
//
// A string that is exactly one expression may resolve to any type. A string
// mixing expressions with literal text (or holding several expressions) is
// valid only if every expression resolves to a string; anything else fails
// with *AmbiguousError.
func (r *Resolver) resolveString(ctx context.Context, s string) (any, error) {
	if !ContainsExpression(s) {
		return s, nil
	}
	segs, err := split(s)
	if err != nil {
		return nil, err
	}
	if len(segs) == 1 && segs[0].expr != nil {
		return r.eval(ctx, segs[0].expr)
	}

	var b strings.Builder
	for _, seg := range segs {
		if seg.expr == nil {
			b.WriteString(seg.literal)
			continue
		}
		v, err := r.eval(ctx, seg.expr)
		if err != nil {
			return nil, err
		}
		str, ok := v.(string)
		if !ok {
			return nil, &AmbiguousError{Value: s}
		}
		b.WriteString(str)
	}
	return b.String(), nil
}

// eval evaluates one expression: nested query first, then the handler, then
// the common arguments in their fixed order.
func (r *Resolver) eval(ctx context.Context, e *Expression) (any, error) {
	query := e.Query
	if ContainsExpression(query) {
		nested, err := r.resolveString(ctx, query)
		if err != nil {
			return nil, err
		}
		str, ok := nested.(string)
		if !ok {
			return nil, fmt.Errorf("nested lookup in %s resolved to a non-string value", e.Raw)
		}
		query = str
	}

	args, err := r.resolveArgs(ctx, e)
	if err != nil {
		return nil, err
	}

	fn, ok := r.registry.Get(e.Handler)
	if !ok {
		return nil, &UnknownHandlerError{Name: e.Handler}
	}

	rctx := r.rctx
	if region := args["region"]; region != "" {
		rctx = rctx.WithRegion(region)
	}

	raw, err := fn(ctx, rctx, query, args)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			if def, ok := args["default"]; ok {
				// The default literal substitutes for the whole result,
				// skipping load, get, and transform.
				return def, nil
			}
		}
		return nil, fmt.Errorf("resolving %s: %w", e.Raw, err)
	}

	out, err := applyCommonArgs(raw, args)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", e.Raw, err)
	}
	return out, nil
}

// resolveArgs evaluates nested expressions inside argument values. Each must
// resolve to a string.
func (r *Resolver) resolveArgs(ctx context.Context, e *Expression) (map[string]string, error) {
	out := make(map[string]string, len(e.Args))
	for k, v := range e.Args {
		if !ContainsExpression(v) {
			out[k] = v
			continue
		}
		resolved, err := r.resolveString(ctx, v)
		if err != nil {
			return nil, err
		}
		str, ok := resolved.(string)
		if !ok {
			return nil, fmt.Errorf("argument %s of %s resolved to a non-string value", k, e.Raw)
		}
		out[k] = str
	}
	return out, nil
}

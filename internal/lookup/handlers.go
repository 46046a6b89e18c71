package lookup

import (
	"context"
	"fmt"
	"os"

	"github.com/strata-io/strata/internal/runctx"
)

// Builtins returns the built-in handler set. Handlers are plain functions
// keyed by name; custom handlers register alongside them at process start.
func Builtins() map[string]Func {
	return map[string]Func{
		OutputHandlerName: outputHandler,
		"var":             varHandler,
		"envvar":          envvarHandler,
		"hook_data":       hookDataHandler,
	}
}

// outputHandler resolves "${output stack-name.OutputName}" against the
// remote provider, caching fetched outputs in the run context so one run
// never asks the provider twice for the same stack.
func outputHandler(ctx context.Context, rctx *runctx.Context, query string, args map[string]string) (any, error) {
	stackName, outputName, err := SplitOutputQuery(query)
	if err != nil {
		return nil, err
	}
	fqn := rctx.QualifiedName(stackName)
	cacheKey := rctx.Region + "/" + fqn

	outputs, ok := rctx.CachedOutputs(cacheKey)
	if !ok {
		if rctx.Outputs == nil {
			return nil, fmt.Errorf("output lookup requires a provider, none attached")
		}
		outputs, err = rctx.Outputs.StackOutputs(ctx, fqn, rctx.Region)
		if err != nil {
			return nil, fmt.Errorf("fetching outputs of stack %s: %w", fqn, err)
		}
		rctx.StoreOutputs(cacheKey, outputs)
	}

	value, ok := outputs[outputName]
	if !ok {
		return nil, &NotFoundError{What: fmt.Sprintf("output %s of stack %s", outputName, fqn)}
	}
	return value, nil
}

// varHandler resolves a run variable by name.
func varHandler(_ context.Context, rctx *runctx.Context, query string, _ map[string]string) (any, error) {
	value, ok := rctx.Var(query)
	if !ok {
		return nil, &NotFoundError{What: fmt.Sprintf("variable %q", query)}
	}
	return value, nil
}

// envvarHandler resolves a process environment variable.
func envvarHandler(_ context.Context, _ *runctx.Context, query string, _ map[string]string) (any, error) {
	value, ok := os.LookupEnv(query)
	if !ok {
		return nil, &NotFoundError{What: fmt.Sprintf("environment variable %q", query)}
	}
	return value, nil
}

// hookDataHandler reads data a hook stored in the run context under its
// data key. Use the get argument to project a sub-value.
func hookDataHandler(_ context.Context, rctx *runctx.Context, query string, _ map[string]string) (any, error) {
	data, ok := rctx.HookData(query)
	if !ok {
		return nil, &NotFoundError{What: fmt.Sprintf("hook data %q", query)}
	}
	return data, nil
}

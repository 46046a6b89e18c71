package lookup

import (
	"fmt"
	"strings"
)

// OutputHandlerName is the one built-in handler whose mere presence in a raw
// value adds a dependency edge to the stack graph.
const OutputHandlerName = "output"

// OutputRef is a statically discovered reference to another stack's output.
type OutputRef struct {
	Stack  string
	Output string
}

// SplitOutputQuery parses an output handler query of the form
// "stack-name.OutputName".
func SplitOutputQuery(query string) (stack, output string, err error) {
	stack, output, ok := strings.Cut(query, ".")
	if !ok || stack == "" || output == "" {
		return "", "", fmt.Errorf("malformed output query %q, want stack-name.OutputName", query)
	}
	return stack, output, nil
}

// ScanOutputs performs the read-only dependency-discovery pass over a raw,
// unresolved value tree. It returns every output reference whose target stack
// is statically known, without executing any handler. Queries built from
// nested expressions cannot be resolved statically and are skipped; nested
// expressions themselves are still scanned.
func ScanOutputs(value any) []OutputRef {
	var refs []OutputRef
	scanValue(value, &refs)
	return refs
}

func scanValue(value any, refs *[]OutputRef) {
	switch v := value.(type) {
	case string:
		scanString(v, refs)
	case []any:
		for _, item := range v {
			scanValue(item, refs)
		}
	case map[string]any:
		for _, item := range v {
			scanValue(item, refs)
		}
	}
}

func scanString(s string, refs *[]OutputRef) {
	if !ContainsExpression(s) {
		return
	}
	segs, err := split(s)
	if err != nil {
		// Malformed expressions are reported by the evaluator, not the scan.
		return
	}
	for _, seg := range segs {
		if seg.expr == nil {
			continue
		}
		scanExpression(seg.expr, refs)
	}
}

func scanExpression(e *Expression, refs *[]OutputRef) {
	if e.Handler == OutputHandlerName && !ContainsExpression(e.Query) {
		if stack, output, err := SplitOutputQuery(e.Query); err == nil {
			*refs = append(*refs, OutputRef{Stack: stack, Output: output})
		}
	}
	// Nested expressions in the query or argument values may themselves
	// reference outputs.
	scanString(e.Query, refs)
	for _, v := range e.Args {
		scanString(v, refs)
	}
}

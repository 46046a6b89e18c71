package lookup

import (
	"fmt"
	"strings"
)

// Expression is one parsed ${handler query::k=v,...} occurrence. The query may
// itself contain complete nested ${...} expressions; those are resolved
// depth-first before the outer handler runs.
type Expression struct {
	Handler string
	Query   string
	Args    map[string]string
	// Raw is the original source text including the ${} delimiters, used in
	// error messages.
	Raw string
}

// segment is one piece of a raw string value: either literal text or a
// lookup expression.
type segment struct {
	literal string
	expr    *Expression
}

const exprOpen = "${"

// ContainsExpression reports whether s holds at least one lookup expression.
func ContainsExpression(s string) bool {
	return strings.Contains(s, exprOpen)
}

// split breaks a raw string into literal and expression segments.
func split(s string) ([]segment, error) {
	var segs []segment
	for len(s) > 0 {
		start := strings.Index(s, exprOpen)
		if start < 0 {
			segs = append(segs, segment{literal: s})
			break
		}
		if start > 0 {
			segs = append(segs, segment{literal: s[:start]})
		}
		end, err := matchBrace(s, start)
		if err != nil {
			return nil, err
		}
		raw := s[start : end+1]
		expr, err := parseExpression(raw)
		if err != nil {
			return nil, err
		}
		segs = append(segs, segment{expr: expr})
		s = s[end+1:]
	}
	return segs, nil
}

// matchBrace returns the index of the "}" closing the expression opening at
// start, accounting for nested ${...}.
func matchBrace(s string, start int) (int, error) {
	depth := 0
	for i := start; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], exprOpen):
			depth++
			i++ // skip the '{'
		case s[i] == '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unterminated lookup expression: %s", s[start:])
}

// parseExpression parses one ${...} token.
func parseExpression(raw string) (*Expression, error) {
	inner := raw[len(exprOpen) : len(raw)-1]
	inner = strings.TrimSpace(inner)

	handler, rest, found := strings.Cut(inner, " ")
	if handler == "" {
		return nil, fmt.Errorf("empty lookup expression: %s", raw)
	}
	e := &Expression{Handler: handler, Args: make(map[string]string), Raw: raw}
	if !found {
		return e, nil
	}
	rest = strings.TrimSpace(rest)

	// The args separator "::" must be found outside any nested expression.
	query, args := rest, ""
	if sep := indexTopLevel(rest, "::"); sep >= 0 {
		query, args = rest[:sep], rest[sep+2:]
	}
	e.Query = strings.TrimSpace(query)

	if args != "" {
		for _, pair := range splitTopLevel(args, ',') {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("malformed lookup argument %q in %s", pair, raw)
			}
			e.Args[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return e, nil
}

// indexTopLevel finds sep in s outside nested ${...}, or -1.
func indexTopLevel(s, sep string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], exprOpen):
			depth++
			i++
		case s[i] == '}' && depth > 0:
			depth--
		case depth == 0 && strings.HasPrefix(s[i:], sep):
			return i
		}
	}
	return -1
}

// splitTopLevel splits s on sep, ignoring separators inside nested ${...}.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], exprOpen):
			depth++
			i++
		case s[i] == '}' && depth > 0:
			depth--
		case depth == 0 && s[i] == sep:
			parts = append(parts, s[last:i])
			last = i + 1
		}
	}
	return append(parts, s[last:])
}

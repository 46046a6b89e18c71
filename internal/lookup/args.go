package lookup

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Common arguments understood by every lookup, applied to the handler's raw
// result in this fixed order: load, get, transform. The default argument is
// handled earlier (it substitutes the whole result on a not-found condition)
// and region earlier still (it re-targets the handler itself).
func applyCommonArgs(raw any, args map[string]string) (any, error) {
	var err error
	if format, ok := args["load"]; ok {
		raw, err = loadValue(raw, format)
		if err != nil {
			return nil, err
		}
	}
	if path, ok := args["get"]; ok {
		raw, err = getPath(raw, path)
		if err != nil {
			return nil, err
		}
	}
	if transform, ok := args["transform"]; ok {
		raw, err = transformValue(raw, transform, args["indent"])
		if err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// loadValue parses a raw string result as structured data.
func loadValue(raw any, format string) (any, error) {
	if format != "json" {
		return nil, fmt.Errorf("unsupported load format %q", format)
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("load=json requires a string result, got %T", raw)
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("load=json: %w", err)
	}
	return out, nil
}

// getPath projects a dotted-path sub-value out of a loaded structure.
// Path elements index maps by key and slices by position.
func getPath(raw any, path string) (any, error) {
	current := raw
	for _, part := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[part]
			if !ok {
				return nil, fmt.Errorf("get=%s: key %q not found", path, part)
			}
			current = next
		case map[string]string:
			next, ok := v[part]
			if !ok {
				return nil, fmt.Errorf("get=%s: key %q not found", path, part)
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("get=%s: invalid index %q", path, part)
			}
			current = v[idx]
		default:
			return nil, fmt.Errorf("get=%s: cannot descend into %T at %q", path, current, part)
		}
	}
	return current, nil
}

// transformValue coerces the final value to bool or string.
func transformValue(raw any, transform, indent string) (any, error) {
	switch transform {
	case "str":
		n := 0
		if indent != "" {
			parsed, err := strconv.Atoi(indent)
			if err != nil || parsed < 0 {
				return nil, fmt.Errorf("invalid indent %q", indent)
			}
			n = parsed
		}
		return ToString(raw, n)
	case "bool":
		return toBool(raw)
	default:
		return nil, fmt.Errorf("unsupported transform %q", transform)
	}
}

// ToString renders a resolved value as a string: collections become
// comma-joined lists, mappings become compact JSON (or indented JSON when
// indent > 0).
func ToString(v any, indent int) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case []string:
		return strings.Join(val, ","), nil
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			s, err := ToString(item, indent)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, ","), nil
	case map[string]string:
		return marshalMap(val, indent)
	case map[string]any:
		return marshalMap(val, indent)
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("cannot render %T as a string", v)
	}
}

func marshalMap(v any, indent int) (string, error) {
	var data []byte
	var err error
	if indent > 0 {
		data, err = json.MarshalIndent(v, "", strings.Repeat(" ", indent))
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func toBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch strings.ToLower(val) {
		case "true", "yes", "1":
			return true, nil
		case "false", "no", "0":
			return false, nil
		}
		return false, fmt.Errorf("cannot coerce %q to bool", val)
	default:
		return false, fmt.Errorf("cannot coerce %T to bool", v)
	}
}

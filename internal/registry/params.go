package registry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/khanglvm/tool-router/internal/errors"
)

// Parameter types.
const (
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeInteger = "integer"
	TypeArray   = "array"
	TypeObject  = "object"
)

// Param describes one tool argument.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Default     any
	Enum        []string
	// Aliases are alternative argument names accepted on input.
	Aliases []string
}

// ValidateArgs checks args against the tool's parameters. It accepts
// parameter aliases, coerces scalar types, fills defaults and drops unknown
// arguments. Problems are reported as INVALID_PARAMETER errors whose
// alternatives list the accepted parameter names.
func ValidateArgs(tool Tool, args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(tool.Params))

	for _, p := range tool.Params {
		v, ok := lookup(args, p)
		if !ok || isBlank(v) {
			if p.Default != nil {
				out[p.Name] = p.Default
				continue
			}
			if p.Required {
				return nil, invalidParam(tool, p, fmt.Sprintf("missing required parameter %q", p.Name))
			}
			continue
		}

		coerced, err := coerce(p.Type, v)
		if err != nil {
			return nil, invalidParam(tool, p, fmt.Sprintf("parameter %q: %v", p.Name, err))
		}
		if len(p.Enum) > 0 {
			s, _ := coerced.(string)
			if !contains(p.Enum, s) {
				return nil, apperrors.New(apperrors.ErrCodeInvalidParameter,
					fmt.Sprintf("%s: parameter %q must be one of %s", tool.Name, p.Name, strings.Join(p.Enum, ", ")), nil).
					WithInput(s).
					WithAlternatives(p.Enum...)
			}
		}
		out[p.Name] = coerced
	}
	return out, nil
}

// MissingRequired lists required parameters that args does not supply.
func MissingRequired(tool Tool, args map[string]any) []string {
	var missing []string
	for _, p := range tool.Params {
		if !p.Required || p.Default != nil {
			continue
		}
		if v, ok := lookup(args, p); !ok || isBlank(v) {
			missing = append(missing, p.Name)
		}
	}
	return missing
}

func lookup(args map[string]any, p Param) (any, bool) {
	if v, ok := args[p.Name]; ok {
		return v, true
	}
	for _, a := range p.Aliases {
		if v, ok := args[a]; ok {
			return v, true
		}
	}
	return nil, false
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func coerce(typ string, v any) (any, error) {
	switch typ {
	case TypeString, "":
		switch t := v.(type) {
		case string:
			return t, nil
		case fmt.Stringer:
			return t.String(), nil
		case bool, int, int64, float64:
			return fmt.Sprint(t), nil
		}
		return nil, fmt.Errorf("expected string, got %T", v)
	case TypeBoolean:
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(t))
			if err != nil {
				return nil, fmt.Errorf("expected boolean, got %q", t)
			}
			return b, nil
		}
		return nil, fmt.Errorf("expected boolean, got %T", v)
	case TypeInteger:
		switch t := v.(type) {
		case int:
			return t, nil
		case int64:
			return int(t), nil
		case float64:
			if t != float64(int(t)) {
				return nil, fmt.Errorf("expected integer, got %v", t)
			}
			return int(t), nil
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(t))
			if err != nil {
				return nil, fmt.Errorf("expected integer, got %q", t)
			}
			return n, nil
		}
		return nil, fmt.Errorf("expected integer, got %T", v)
	case TypeArray:
		switch t := v.(type) {
		case []string:
			return t, nil
		case []any:
			out := make([]string, 0, len(t))
			for _, item := range t {
				out = append(out, fmt.Sprint(item))
			}
			return out, nil
		case string:
			var out []string
			for _, part := range strings.Split(t, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			return out, nil
		}
		return nil, fmt.Errorf("expected array, got %T", v)
	case TypeObject:
		return v, nil
	}
	return nil, fmt.Errorf("unsupported parameter type %s", typ)
}

func invalidParam(tool Tool, p Param, msg string) *apperrors.AppError {
	return apperrors.New(apperrors.ErrCodeInvalidParameter, fmt.Sprintf("%s: %s", tool.Name, msg), nil).
		WithInput(p.Name).
		WithAlternatives(tool.ParamNames()...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Words turns a normalized name back into space separated words.
func Words(norm string) string {
	return strings.ReplaceAll(norm, "_", " ")
}

// JSONSchema renders the tool's parameters as a JSON-Schema object.
func (t Tool) JSONSchema() map[string]any {
	props := make(map[string]any, len(t.Params))
	var required []string
	for _, p := range t.Params {
		prop := map[string]any{"type": p.Type, "description": p.Description}
		if p.Type == TypeArray {
			prop["items"] = map[string]any{"type": TypeString}
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	sort.Strings(required)
	schema := map[string]any{"type": TypeObject, "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

package tool

import (
	"fmt"
	"sort"
	"strings"
)

// Verdict is the outcome of validating supplied parameters against a tool
// schema. Errors holds every violation found, never just the first one.
type Verdict struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate checks params against def.Params.
//
// Required parameters that are absent are reported first, in declaration order.
// Supplied parameters are then checked in key order: string, number and array
// types are enforced (booleans pass unchecked) and enum membership is checked.
// Keys the schema does not declare are accepted as-is.
func Validate(def ToolDefinition, params map[string]any) Verdict {
	errs := make([]string, 0)

	for _, p := range def.Params {
		if !p.Spec.Required {
			continue
		}
		if _, ok := params[p.Name]; !ok {
			errs = append(errs, "Missing required parameter: "+p.Name)
		}
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		spec, declared := def.Params.Get(name)
		if !declared {
			continue
		}
		value := params[name]
		if msg := typeViolation(name, spec.Type, value); msg != "" {
			errs = append(errs, msg)
		}
		if len(spec.Enum) > 0 && !spec.allows(value) {
			errs = append(errs, fmt.Sprintf("Parameter '%s' must be one of: %s", name, joinValues(spec.Enum)))
		}
	}

	return Verdict{Valid: len(errs) == 0, Errors: errs}
}

func typeViolation(name string, t ParamType, value any) string {
	switch t {
	case ParamString:
		if !ParamString.Matches(value) {
			return fmt.Sprintf("Parameter '%s' must be a string", name)
		}
	case ParamNumber:
		if !ParamNumber.Matches(value) {
			return fmt.Sprintf("Parameter '%s' must be a number", name)
		}
	case ParamArray:
		if !ParamArray.Matches(value) {
			return fmt.Sprintf("Parameter '%s' must be an array", name)
		}
	}
	return ""
}

func joinValues(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}

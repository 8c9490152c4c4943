package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/fairwaylabs/tripgraph"
)

// Slot descriptions support two interpolation forms resolved at hydration
// time, once the referenced dependencies have settled:
//
//	${field}       - replaced with the dependency value for that target field
//	$calc{expr}    - evaluated with govaluate; dependency fields are variables
//
// Example: "book a car that leaves $calc{tee_time_hour - 1} hours before
// the round at ${course_name}".

var (
	placeholderRe = regexp.MustCompile(`\$\{([a-zA-Z0-9_]+)\}`)
	calcRe        = regexp.MustCompile(`\$calc\{([^}]+)\}`)
)

// ExpressionFunctionRegistry allows registration of custom functions for
// $calc expressions.
type ExpressionFunctionRegistry struct {
	functions map[string]govaluate.ExpressionFunction
}

var globalExprFuncRegistry = &ExpressionFunctionRegistry{functions: make(map[string]govaluate.ExpressionFunction)}

// RegisterExpressionFunction registers a custom function for $calc expressions.
func RegisterExpressionFunction(name string, fn govaluate.ExpressionFunction) {
	globalExprFuncRegistry.functions[name] = fn
}

// getWhitelistedFunctions returns only whitelisted functions for security.
func getWhitelistedFunctions() map[string]govaluate.ExpressionFunction {
	whitelist := map[string]govaluate.ExpressionFunction{}
	for k, v := range globalExprFuncRegistry.functions {
		whitelist[k] = v
	}
	return whitelist
}

// interpolate resolves ${field} and $calc{expr} forms in a slot description
// against the settled dependency values. Unknown ${field} references are an
// error: a placeholder that cannot be bound means the instruction would go
// out half-formed.
func interpolate(description string, deps map[string]tripgraph.Value) (string, error) {
	var missing string
	out := placeholderRe.ReplaceAllStringFunc(description, func(matched string) string {
		field := placeholderRe.FindStringSubmatch(matched)[1]
		v, ok := depLookup(deps, field)
		if !ok {
			if missing == "" {
				missing = field
			}
			return matched
		}
		return v.String()
	})
	if missing != "" {
		return "", fmt.Errorf("unresolved placeholder ${%s}", missing)
	}

	var calcErr error
	out = calcRe.ReplaceAllStringFunc(out, func(matched string) string {
		expr := calcRe.FindStringSubmatch(matched)[1]
		result, err := evaluateCalc(expr, deps)
		if err != nil {
			if calcErr == nil {
				calcErr = err
			}
			return matched
		}
		return fmt.Sprintf("%v", result)
	})
	if calcErr != nil {
		return "", calcErr
	}
	return out, nil
}

// evaluateCalc runs one $calc expression with dependency fields bound as
// variables. Scalar values that parse as numbers are bound numerically so
// arithmetic works; everything else is bound as a string.
func evaluateCalc(expr string, deps map[string]tripgraph.Value) (interface{}, error) {
	variables := make(map[string]interface{}, len(deps))
	for field, v := range deps {
		variables[field] = coerce(v)
	}
	evalExpr, err := govaluate.NewEvaluableExpressionWithFunctions(expr, getWhitelistedFunctions())
	if err != nil {
		return nil, fmt.Errorf("parse $calc{%s}: %w", expr, err)
	}
	result, err := evalExpr.Evaluate(variables)
	if err != nil {
		return nil, fmt.Errorf("evaluate $calc{%s}: %w", expr, err)
	}
	return result, nil
}

// depLookup resolves a placeholder field against the dependency values,
// tolerating the same naming variants the binding table does.
func depLookup(deps map[string]tripgraph.Value, field string) (tripgraph.Value, bool) {
	if v, ok := deps[field]; ok {
		return v, true
	}
	canon := NormalizeField(field)
	if canon == "" {
		return nil, false
	}
	if v, ok := deps[canon]; ok {
		return v, true
	}
	for depField, v := range deps {
		if NormalizeField(depField) == canon {
			return v, true
		}
	}
	return nil, false
}

func coerce(v tripgraph.Value) interface{} {
	s := v.String()
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f
	}
	return s
}

package template

import (
	"fmt"
	"regexp"
	"strings"
)

// Engine resolves {{ variable }} placeholders in scenario action fields
// against the execution's variable store. Referencing a variable that was
// never stored is an error, never a silent empty-string substitution.
type Engine struct {
	templatePattern *regexp.Regexp
}

// New creates a new template engine.
func New() *Engine {
	return &Engine{
		templatePattern: regexp.MustCompile(`\{\{\s*\.?([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`),
	}
}

// Replace replaces all template variables in a value with actual values from
// the context. Strings are substituted in place; maps and slices are walked
// recursively; other types pass through unchanged.
func (e *Engine) Replace(value interface{}, context map[string]interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return e.replaceString(v, context)
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, val := range v {
			replaced, err := e.Replace(val, context)
			if err != nil {
				return nil, fmt.Errorf("error in key %q: %w", key, err)
			}
			result[key] = replaced
		}
		return result, nil
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, val := range v {
			replaced, err := e.Replace(val, context)
			if err != nil {
				return nil, fmt.Errorf("error at index %d: %w", i, err)
			}
			result[i] = replaced
		}
		return result, nil
	default:
		return value, nil
	}
}

// ReplaceString resolves placeholders in a single string field.
func (e *Engine) ReplaceString(value string, context map[string]interface{}) (string, error) {
	return e.replaceString(value, context)
}

func (e *Engine) replaceString(template string, context map[string]interface{}) (string, error) {
	var missingVars []string

	// Substitution runs over the exact matches the pattern finds, so any
	// placeholder spelling the engine recognizes is guaranteed to be either
	// resolved or reported, never left verbatim.
	result := e.templatePattern.ReplaceAllStringFunc(template, func(match string) string {
		submatch := e.templatePattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}

		varName := submatch[1]
		replacement, exists := context[varName]
		if !exists {
			missingVars = append(missingVars, varName)
			return match
		}
		return stringify(replacement)
	})

	if len(missingVars) > 0 {
		return "", fmt.Errorf("undefined variable(s): %s", strings.Join(missingVars, ", "))
	}

	return result, nil
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case int, int32, int64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%v", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ExtractVariables extracts all template variable names referenced by a
// value, recursively for maps and slices.
func (e *Engine) ExtractVariables(value interface{}) []string {
	variables := make(map[string]bool)
	e.extractVariables(value, variables)

	result := make([]string, 0, len(variables))
	for varName := range variables {
		result = append(result, varName)
	}
	return result
}

func (e *Engine) extractVariables(value interface{}, variables map[string]bool) {
	switch v := value.(type) {
	case string:
		for _, match := range e.templatePattern.FindAllStringSubmatch(v, -1) {
			if len(match) >= 2 {
				variables[match[1]] = true
			}
		}
	case map[string]interface{}:
		for _, val := range v {
			e.extractVariables(val, variables)
		}
	case []interface{}:
		for _, val := range v {
			e.extractVariables(val, variables)
		}
	}
}

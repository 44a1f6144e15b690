package template

// MergeContexts merges multiple variable contexts into one. Later contexts
// override values from earlier contexts; this lets execution-scoped results
// shadow configuration-level defaults.
func MergeContexts(contexts ...map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for _, ctx := range contexts {
		for key, value := range ctx {
			result[key] = value
		}
	}

	return result
}

package llm

// BuildTariffJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. Types are deliberately loose: models return numerics as either
// numbers or strings, and the normalizer owns coercion. The schema gates
// shape only (required keys present, no foreign keys).
func BuildTariffJSONSchema() map[string]any {
	looseInt := map[string]any{
		"type": []any{"integer", "number", "string", "null"},
	}
	optString := map[string]any{
		"type": []any{"string", "null"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"Country":        map[string]any{"type": "string", "minLength": 1},
			"Type":           map[string]any{"type": "string", "minLength": 1},
			"Liner_Name":     optString,
			"Port":           optString,
			"Equipment_Type": map[string]any{"type": "string", "minLength": 1},
			"Currency":       map[string]any{"type": "string", "minLength": 1},
			"Free_days":      looseInt,
			"Bucket_1":       looseInt,
			"Bucket_2":       looseInt,
			"Bucket_3":       looseInt,
		},
		"required": []string{"Country", "Type", "Equipment_Type", "Currency", "Free_days"},
	}
}

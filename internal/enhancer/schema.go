package enhancer

// OutputJSONSchema describes a fully enhanced image field value.
func OutputJSONSchema() map[string]any {
	nullableString := map[string]any{
		"anyOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"type": "null"},
		},
	}
	link := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"href": map[string]any{"type": "string", "format": "uri"},
			"meta": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"rel": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string", "format": "uri"},
					},
				},
			},
		},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type": map[string]any{"type": "string"},
			"id":   map[string]any{"type": "string"},
			"meta": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"height": map[string]any{"type": "integer"},
					"width":  map[string]any{"type": "integer"},
					"alt":    nullableString,
					"title":  nullableString,
					"links": map[string]any{
						"type":              "object",
						"patternProperties": map[string]any{".*": link},
					},
				},
			},
		},
	}
}

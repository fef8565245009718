package mcp

// ToolDefinition models MCP tool metadata.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func toolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "get_alerts",
			Description: "Get active weather alerts for a US state.",
			InputSchema: jsonSchema(map[string]any{
				"state": propString("Two-letter US state code (e.g. CA, NY)."),
			}, []string{"state"}),
		},
		{
			Name:        "get_forecast",
			Description: "Get the weather forecast for a location.",
			InputSchema: jsonSchema(map[string]any{
				"latitude":  propNumber("Latitude of the location."),
				"longitude": propNumber("Longitude of the location."),
			}, []string{"latitude", "longitude"}),
		},
		{
			Name:        "calculate",
			Description: "Calculate the result of a mathematical expression.",
			InputSchema: jsonSchema(map[string]any{
				"expression": propString("A mathematical expression (e.g. \"2 + 2\", \"sin(30)\")."),
			}, []string{"expression"}),
		},
		{
			Name:        "get_current_time",
			Description: "Get the current local date and time.",
			InputSchema: jsonSchema(map[string]any{}, nil),
		},
		{
			Name:        "get_current_utc_time",
			Description: "Get the current UTC date and time.",
			InputSchema: jsonSchema(map[string]any{}, nil),
		},
	}
}

func jsonSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func propString(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func propNumber(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

package tools

import "github.com/openai/openai-go"

// Definitions returns the function schemas declared to the model.
func Definitions() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{
		{
			Function: openai.FunctionDefinitionParam{
				Name:        string(KindRecordUserDetails),
				Description: openai.String("Use this tool to record that a user is interested in being in touch and provided an email address"),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"email": map[string]any{
							"type":        "string",
							"description": "The email address of this user",
						},
						"name": map[string]any{
							"type":        "string",
							"description": "The user's name, if they provided it",
						},
						"notes": map[string]any{
							"type":        "string",
							"description": "Any additional information about the conversation that's worth recording to give context",
						},
					},
					"required":             []string{"email"},
					"additionalProperties": false,
				},
			},
		},
		{
			Function: openai.FunctionDefinitionParam{
				Name:        string(KindRecordUnknownQuestion),
				Description: openai.String("Always use this tool to record any question that couldn't be answered as you didn't know the answer"),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The question that couldn't be answered",
						},
					},
					"required":             []string{"question"},
					"additionalProperties": false,
				},
			},
		},
	}
}

package chat

import "testing"

func TestCloneIsolation(t *testing.T) {
	original := []Message{
		User("hei"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_1", Name: "record_unknown_question", Arguments: `{"question":"?"}`}}},
		ToolResult("call_1", `{"recorded":"ok"}`),
	}

	cloned := Clone(original)
	cloned[0].Content = "mutated"
	cloned[1].ToolCalls[0].Name = "mutated"

	if original[0].Content != "hei" {
		t.Error("clone aliased message content")
	}
	if original[1].ToolCalls[0].Name != "record_unknown_question" {
		t.Error("clone aliased tool calls")
	}
}

func TestCloneNil(t *testing.T) {
	if Clone(nil) != nil {
		t.Error("clone of nil should stay nil")
	}
}

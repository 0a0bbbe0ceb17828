package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bfscompany/portfoliobot/internal/chat"
	"github.com/bfscompany/portfoliobot/internal/events"
	"github.com/bfscompany/portfoliobot/internal/notify"
)

// Kind identifies a callable tool.
type Kind string

const (
	KindRecordUserDetails     Kind = "record_user_details"
	KindRecordUnknownQuestion Kind = "record_unknown_question"
)

// Handler executes one tool invocation and returns its JSON-serializable
// result. Handlers never fail: side-effect errors are absorbed and logged.
type Handler func(ctx context.Context, args map[string]any) map[string]any

// Dispatcher resolves model-issued tool calls against a statically
// constructed registry. Unknown tool names yield an empty result object
// rather than failing the batch.
type Dispatcher struct {
	handlers map[Kind]Handler
	notifier *notify.Pushover
	logger   *events.Logger
}

// NewDispatcher builds the registry of the two supported tools.
func NewDispatcher(notifier *notify.Pushover, logger *events.Logger) *Dispatcher {
	d := &Dispatcher{notifier: notifier, logger: logger}
	d.handlers = map[Kind]Handler{
		KindRecordUserDetails:     d.recordUserDetails,
		KindRecordUnknownQuestion: d.recordUnknownQuestion,
	}
	return d
}

// Dispatch runs each requested call and produces one tool message per call,
// correlated by the call id, ready to append to the transcript.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []chat.ToolCall) []chat.Message {
	results := make([]chat.Message, 0, len(calls))
	for _, call := range calls {
		args := map[string]any{}
		if call.Arguments != "" {
			// Malformed arguments behave like an empty argument object.
			_ = json.Unmarshal([]byte(call.Arguments), &args)
		}
		d.logger.Event("tool_invoked", "tool", call.Name)

		var result map[string]any
		if handler, ok := d.handlers[Kind(call.Name)]; ok {
			result = handler(ctx, args)
		} else {
			d.logger.Event("tool_missing", "tool", call.Name)
			result = map[string]any{}
		}

		content, err := json.Marshal(result)
		if err != nil {
			content = []byte("{}")
		}
		results = append(results, chat.ToolResult(call.ID, string(content)))
	}
	return results
}

func (d *Dispatcher) recordUserDetails(ctx context.Context, args map[string]any) map[string]any {
	email := stringArg(args, "email", "")
	name := stringArg(args, "name", "Name not provided")
	notes := stringArg(args, "notes", "not provided")

	d.notifier.Push(ctx, fmt.Sprintf("Recording %s with email %s and notes %s", name, email, notes))
	d.logger.Event("record_user_details", "email", email, "name", name)
	return map[string]any{"recorded": "ok"}
}

func (d *Dispatcher) recordUnknownQuestion(ctx context.Context, args map[string]any) map[string]any {
	question := stringArg(args, "question", "")

	d.notifier.Push(ctx, fmt.Sprintf("Recording %s", question))
	d.logger.Event("record_unknown_question", "question_preview", truncate(question, 120))
	return map[string]any{"recorded": "ok"}
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bfscompany/portfoliobot/internal/chat"
	"github.com/bfscompany/portfoliobot/internal/events"
	"github.com/bfscompany/portfoliobot/internal/notify"
)

// newTestDispatcher routes pushover traffic to a capture server.
func newTestDispatcher(t *testing.T) (*Dispatcher, *[]string) {
	t.Helper()
	var messages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err == nil {
			messages = append(messages, r.Form.Get("message"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	logger := events.New("error")
	notifier := notify.NewPushover("token", "user", time.Second, logger)
	notifier.SetEndpoint(srv.URL)
	return NewDispatcher(notifier, logger), &messages
}

func TestDispatchRecordUserDetailsDefaults(t *testing.T) {
	d, messages := newTestDispatcher(t)

	results := d.Dispatch(context.Background(), []chat.ToolCall{
		{ID: "call_1", Name: "record_user_details", Arguments: `{"email":"a@b.com"}`},
	})

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Role != chat.RoleTool || results[0].ToolCallID != "call_1" {
		t.Errorf("bad result envelope: %+v", results[0])
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(results[0].Content), &payload); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if payload["recorded"] != "ok" {
		t.Errorf(`result = %v, want {"recorded":"ok"}`, payload)
	}

	if len(*messages) != 1 {
		t.Fatalf("expected one push, got %d", len(*messages))
	}
	want := "Recording Name not provided with email a@b.com and notes not provided"
	if (*messages)[0] != want {
		t.Errorf("push = %q, want %q", (*messages)[0], want)
	}
}

func TestDispatchRecordUnknownQuestion(t *testing.T) {
	d, messages := newTestDispatcher(t)

	results := d.Dispatch(context.Background(), []chat.ToolCall{
		{ID: "call_2", Name: "record_unknown_question", Arguments: `{"question":"Hva er yndlingsfargen din?"}`},
	})

	if results[0].Content != `{"recorded":"ok"}` {
		t.Errorf("result = %q", results[0].Content)
	}
	if (*messages)[0] != "Recording Hva er yndlingsfargen din?" {
		t.Errorf("push = %q", (*messages)[0])
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	d, messages := newTestDispatcher(t)

	results := d.Dispatch(context.Background(), []chat.ToolCall{
		{ID: "call_3", Name: "no_such_tool", Arguments: `{}`},
	})

	if len(results) != 1 {
		t.Fatalf("unknown tool must not fail the batch")
	}
	if results[0].Content != "{}" {
		t.Errorf("unknown tool result = %q, want empty object", results[0].Content)
	}
	if len(*messages) != 0 {
		t.Error("unknown tool must not push")
	}
}

func TestDispatchMalformedArguments(t *testing.T) {
	d, _ := newTestDispatcher(t)

	results := d.Dispatch(context.Background(), []chat.ToolCall{
		{ID: "call_4", Name: "record_user_details", Arguments: `not json`},
	})
	if results[0].Content != `{"recorded":"ok"}` {
		t.Errorf("malformed arguments should behave like empty args, got %q", results[0].Content)
	}
}

func TestDispatchBatchOrdering(t *testing.T) {
	d, _ := newTestDispatcher(t)

	results := d.Dispatch(context.Background(), []chat.ToolCall{
		{ID: "a", Name: "record_unknown_question", Arguments: `{"question":"q1"}`},
		{ID: "b", Name: "no_such_tool"},
		{ID: "c", Name: "record_unknown_question", Arguments: `{"question":"q2"}`},
	})

	ids := []string{results[0].ToolCallID, results[1].ToolCallID, results[2].ToolCallID}
	if ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("results out of order: %v", ids)
	}
}

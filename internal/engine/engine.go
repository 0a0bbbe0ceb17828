package engine

import (
	"context"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/bfscompany/portfoliobot/internal/chat"
	"github.com/bfscompany/portfoliobot/internal/events"
	"github.com/bfscompany/portfoliobot/internal/language"
	"github.com/bfscompany/portfoliobot/internal/persona"
	"github.com/bfscompany/portfoliobot/internal/tools"
)

// Tool rounds allowed per chat turn before the engine gives up. The model
// normally terminates on its own; the cap bounds worst-case latency and
// cost if it never does.
const defaultMaxToolRounds = 5

// Options configures the engine.
type Options struct {
	Model      string
	Timeout    time.Duration
	MaxRetries int
	// Extra request options, used by tests to point the client at a fake
	// server.
	RequestOptions []option.RequestOption
}

// Engine drives one chat turn against the model: prompt assembly, the
// multi-turn tool-call loop, and normalization of the outcome. It never
// mutates stored session state; callers pass history in and persist the
// returned copy.
type Engine struct {
	client        openai.Client
	model         string
	persona       *persona.Persona
	dispatcher    *tools.Dispatcher
	logger        *events.Logger
	maxToolRounds int
}

// Result is the normalized outcome of a chat turn. Degraded marks the
// designed fallback path taken when the provider is unreachable or the tool
// loop exceeds its cap; it is not an error.
type Result struct {
	Reply    string
	History  []chat.Message
	Degraded bool
}

// New creates an Engine. The API key is read from OPENAI_API_KEY by the SDK.
func New(opts Options, p *persona.Persona, dispatcher *tools.Dispatcher, logger *events.Logger) *Engine {
	requestOpts := []option.RequestOption{
		option.WithRequestTimeout(opts.Timeout),
		option.WithMaxRetries(opts.MaxRetries),
	}
	requestOpts = append(requestOpts, opts.RequestOptions...)

	return &Engine{
		client:        openai.NewClient(requestOpts...),
		model:         opts.Model,
		persona:       p,
		dispatcher:    dispatcher,
		logger:        logger,
		maxToolRounds: defaultMaxToolRounds,
	}
}

// outcome is the enumerated result of one model call.
type outcomeKind int

const (
	outcomeReply outcomeKind = iota
	outcomeToolCalls
)

type outcome struct {
	kind  outcomeKind
	text  string
	calls []chat.ToolCall
}

// Run executes one chat turn. The returned history includes the user
// message, any tool-call bookkeeping, and the final assistant reply, without
// the leading system prompt. On failure it degrades to a localized fallback
// appended to the input history rather than the partial tool transcript.
func (e *Engine) Run(ctx context.Context, message string, history []chat.Message, languageHint string) Result {
	transcript := append(chat.Clone(history), chat.User(message))

	for round := 0; round <= e.maxToolRounds; round++ {
		completion, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(e.model),
			Messages: buildMessages(e.persona.SystemPrompt(), transcript),
			Tools:    tools.Definitions(),
		})
		if err != nil {
			e.logger.Event("openai_error", "error", err.Error())
			return e.degrade(message, history, languageHint)
		}

		o, ok := classify(completion)
		if !ok {
			e.logger.Event("openai_error", "error", "completion contained no choices")
			return e.degrade(message, history, languageHint)
		}

		switch o.kind {
		case outcomeToolCalls:
			transcript = append(transcript, chat.Message{
				Role:      chat.RoleAssistant,
				Content:   o.text,
				ToolCalls: o.calls,
			})
			transcript = append(transcript, e.dispatcher.Dispatch(ctx, o.calls)...)

		case outcomeReply:
			logUsage(e.logger, completion)
			return Result{
				Reply:   o.text,
				History: append(transcript, chat.Assistant(o.text)),
			}
		}
	}

	e.logger.Event("tool_loop_aborted", "max_rounds", e.maxToolRounds)
	return e.degrade(message, history, languageHint)
}

func (e *Engine) degrade(message string, history []chat.Message, languageHint string) Result {
	fallback := FallbackMessage(languageHint)
	updated := append(chat.Clone(history), chat.User(message), chat.Assistant(fallback))
	return Result{Reply: fallback, History: updated, Degraded: true}
}

// FallbackMessage is the localized reply used when the provider is
// unreachable.
func FallbackMessage(languageCode string) string {
	if languageCode == language.English {
		return "Sorry, I ran into an issue reaching the service. Please try again shortly."
	}
	return "Beklager, jeg støtte på et problem med tjenesten min. Kan du prøve igjen om litt?"
}

func classify(completion *openai.ChatCompletion) (outcome, bool) {
	if len(completion.Choices) == 0 {
		return outcome{}, false
	}
	choice := completion.Choices[0]
	if choice.FinishReason == "tool_calls" && len(choice.Message.ToolCalls) > 0 {
		calls := make([]chat.ToolCall, 0, len(choice.Message.ToolCalls))
		for _, tc := range choice.Message.ToolCalls {
			calls = append(calls, chat.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		return outcome{kind: outcomeToolCalls, text: choice.Message.Content, calls: calls}, true
	}
	return outcome{kind: outcomeReply, text: choice.Message.Content}, true
}

func buildMessages(systemPrompt string, transcript []chat.Message) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(transcript)+1)
	messages = append(messages, openai.SystemMessage(systemPrompt))

	for _, m := range transcript {
		switch m.Role {
		case chat.RoleAssistant:
			if len(m.ToolCalls) > 0 {
				messages = append(messages, assistantToolCallMessage(m))
				continue
			}
			messages = append(messages, openai.AssistantMessage(m.Content))
		case chat.RoleTool:
			messages = append(messages, openai.ToolMessage(m.Content, m.ToolCallID))
		case chat.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	return messages
}

func assistantToolCallMessage(m chat.Message) openai.ChatCompletionMessageParamUnion {
	calls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(m.ToolCalls))
	for _, tc := range m.ToolCalls {
		calls = append(calls, openai.ChatCompletionMessageToolCallParam{
			ID: tc.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}

	param := openai.ChatCompletionAssistantMessageParam{ToolCalls: calls}
	if m.Content != "" {
		param.Content.OfString = openai.String(m.Content)
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &param}
}

func logUsage(logger *events.Logger, completion *openai.ChatCompletion) {
	usage := completion.Usage
	if usage.TotalTokens == 0 {
		logger.Event("chat_completion")
		return
	}
	logger.Event("chat_completion",
		"input_tokens", usage.PromptTokens,
		"output_tokens", usage.CompletionTokens,
		"total_tokens", usage.TotalTokens,
	)
}

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/tanveerk/finhub/internal/domain"
	"github.com/tanveerk/finhub/internal/llm"
)

var (
	ErrEmptyMessage   = errors.New("message is required")
	ErrMessageTooLong = errors.New("message too long")
)

const (
	defaultMaxHistory = 20
	defaultMaxInput   = 4000

	// maxToolRounds bounds the model-tool loop. A model that keeps asking
	// for tools past this gets the degraded fallback answer instead of an
	// unbounded bill.
	maxToolRounds = 3

	chatTemperature = 0.7

	toolCallPlaceholder = "[tool calls issued]"
	fallbackAnswer      = "Sorry, I could not generate a response."
	defaultTitle        = "New Conversation"
	titleMaxChars       = 60
)

// ConversationStore is the persistence subset the orchestrator needs.
type ConversationStore interface {
	GetConversation(ctx context.Context, userID, conversationID int64) (*domain.Conversation, error)
	CreateConversation(ctx context.Context, userID int64, title, pageRoute string) (*domain.Conversation, error)
	GetRecentMessages(ctx context.Context, conversationID int64, limit int) ([]domain.ChatMessage, error)
	AddMessage(ctx context.Context, conversationID int64, role, content, toolName, toolPayload string) (*domain.ChatMessage, error)
	TouchConversation(ctx context.Context, conversationID int64) error
}

// Orchestrator drives one chat turn end to end: validate, resolve the
// conversation, replay history, run the bounded tool loop and persist every
// message as it happens.
type Orchestrator struct {
	store      ConversationStore
	client     llm.Client
	tools      *Registry
	log        zerolog.Logger
	maxHistory int
	maxInput   int
}

// NewOrchestrator builds the chat orchestrator. History depth and input cap
// can be tuned with AI_MAX_HISTORY_MESSAGES and AI_MAX_INPUT_CHARS.
func NewOrchestrator(store ConversationStore, client llm.Client, tools *Registry, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:      store,
		client:     client,
		tools:      tools,
		log:        log,
		maxHistory: intFromEnv("AI_MAX_HISTORY_MESSAGES", defaultMaxHistory),
		maxInput:   intFromEnv("AI_MAX_INPUT_CHARS", defaultMaxInput),
	}
}

// Request is one user chat turn. ConversationID zero starts a new
// conversation titled after the message.
type Request struct {
	UserID         int64
	ConversationID int64
	Message        string
	Page           PageContext
}

// Response is the assistant's answer for one turn.
type Response struct {
	ConversationID int64  `json:"conversationId"`
	Message        string `json:"message"`
}

// HandleChat runs one turn. Validation happens before any read or write so a
// rejected message leaves no conversation or message row behind. History is
// loaded before the new user message is persisted to keep it out of its own
// prompt.
func (o *Orchestrator) HandleChat(ctx context.Context, req Request) (*Response, error) {
	trimmed := strings.TrimSpace(req.Message)
	if trimmed == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(req.Message) > o.maxInput {
		return nil, fmt.Errorf("%w (max %d chars)", ErrMessageTooLong, o.maxInput)
	}

	conv, err := o.resolveConversation(ctx, req, trimmed)
	if err != nil {
		return nil, err
	}

	history, err := o.store.GetRecentMessages(ctx, conv.ID, o.maxHistory)
	if err != nil {
		return nil, fmt.Errorf("HandleChat: load history: %w", err)
	}

	if _, err := o.store.AddMessage(ctx, conv.ID, domain.RoleUser, trimmed, "", ""); err != nil {
		return nil, fmt.Errorf("HandleChat: persist user message: %w", err)
	}

	working := make([]llm.Message, 0, len(history)+2)
	working = append(working, llm.Message{Role: llm.RoleSystem, Content: buildSystemPrompt(req.Page)})
	working = append(working, toWireMessages(history)...)
	working = append(working, llm.Message{Role: llm.RoleUser, Content: trimmed})

	var final *llm.Message
	for round := 0; round < maxToolRounds; round++ {
		msg, err := o.client.ChatCompletion(ctx, llm.CompletionRequest{
			Messages:    working,
			Tools:       Definitions(),
			Temperature: chatTemperature,
		})
		if err != nil {
			return nil, fmt.Errorf("HandleChat: %w", err)
		}

		if len(msg.ToolCalls) == 0 {
			final = msg
			break
		}

		placeholder := msg.Content
		if placeholder == "" {
			placeholder = toolCallPlaceholder
		}
		if _, err := o.store.AddMessage(ctx, conv.ID, domain.RoleAssistant, placeholder, "", ""); err != nil {
			return nil, fmt.Errorf("HandleChat: persist tool request: %w", err)
		}

		working = append(working, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   msg.Content,
			ToolCalls: msg.ToolCalls,
		})

		for _, call := range msg.ToolCalls {
			args := llm.SafeParseArgs(call.Function.Arguments)
			result, err := o.tools.Run(ctx, call.Function.Name, args, req.UserID)
			if err != nil {
				return nil, fmt.Errorf("HandleChat: %w", err)
			}

			payload, err := json.Marshal(result)
			if err != nil {
				return nil, fmt.Errorf("HandleChat: encode tool result: %w", err)
			}

			if _, err := o.store.AddMessage(ctx, conv.ID, domain.RoleTool, string(payload), call.Function.Name, string(payload)); err != nil {
				return nil, fmt.Errorf("HandleChat: persist tool result: %w", err)
			}

			working = append(working, llm.Message{
				Role:       llm.RoleTool,
				Name:       call.Function.Name,
				ToolCallID: call.ID,
				Content:    string(payload),
			})
		}
	}

	answer := fallbackAnswer
	if final != nil && final.Content != "" {
		answer = final.Content
	}
	if final == nil {
		o.log.Warn().Int64("conversation_id", conv.ID).Msg("Tool loop exhausted without a final answer")
	}

	if _, err := o.store.AddMessage(ctx, conv.ID, domain.RoleAssistant, answer, "", ""); err != nil {
		return nil, fmt.Errorf("HandleChat: persist answer: %w", err)
	}
	if err := o.store.TouchConversation(ctx, conv.ID); err != nil {
		o.log.Warn().Err(err).Int64("conversation_id", conv.ID).Msg("Touching conversation failed")
	}

	return &Response{ConversationID: conv.ID, Message: answer}, nil
}

func (o *Orchestrator) resolveConversation(ctx context.Context, req Request, trimmed string) (*domain.Conversation, error) {
	if req.ConversationID != 0 {
		conv, err := o.store.GetConversation(ctx, req.UserID, req.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("resolveConversation: %w", err)
		}
		return conv, nil
	}

	title := trimmed
	if utf8.RuneCountInString(title) > titleMaxChars {
		title = string([]rune(title)[:titleMaxChars])
	}
	if title == "" {
		title = defaultTitle
	}
	conv, err := o.store.CreateConversation(ctx, req.UserID, title, req.Page.Route)
	if err != nil {
		return nil, fmt.Errorf("resolveConversation: %w", err)
	}
	return conv, nil
}

// toWireMessages replays persisted history onto the completion wire. Stored
// tool messages carry only the tool name; the originating call id is not
// persisted and the model does not need it for replayed context.
func toWireMessages(history []domain.ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		if m.Role == domain.RoleTool {
			out = append(out, llm.Message{Role: llm.RoleTool, Name: m.ToolName, Content: m.Content})
			continue
		}
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

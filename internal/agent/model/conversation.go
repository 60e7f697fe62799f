package model

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
)

// ErrThreadNotFound is returned when a conversation thread does not exist.
var ErrThreadNotFound = errors.New("thread not found")

// MessageType is the persisted role tag of a message.
type MessageType string

const (
	MessageHuman  MessageType = "human"
	MessageAI     MessageType = "ai"
	MessageTool   MessageType = "tool"
	MessageSystem MessageType = "system"
)

// ParseMessageType accepts both persisted tags and chat roles (user, assistant).
func ParseMessageType(v string) (MessageType, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "human", "user":
		return MessageHuman, true
	case "ai", "assistant":
		return MessageAI, true
	case "tool", "function":
		return MessageTool, true
	case "system":
		return MessageSystem, true
	}
	return "", false
}

// ToolCall is the tool-call metadata carried by assistant messages.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args"`
}

type Message struct {
	Type       MessageType `json:"type"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
}

func NewUserMessage(content string) Message {
	return Message{Type: MessageHuman, Content: content, Timestamp: time.Now().UTC()}
}

func NewAssistantMessage(content string) Message {
	return Message{Type: MessageAI, Content: content, Timestamp: time.Now().UTC()}
}

// Role maps the persisted type to an Eino role.
func (m Message) Role() schema.RoleType {
	switch m.Type {
	case MessageAI:
		return schema.Assistant
	case MessageTool:
		return schema.Tool
	case MessageSystem:
		return schema.System
	default:
		return schema.User
	}
}

// ToSchema converts the message into an Eino message, keeping tool-call metadata.
func (m Message) ToSchema() *schema.Message {
	out := &schema.Message{
		Role:       m.Role(),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, schema.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Args,
			},
		})
	}
	return out
}

// MessageFromSchema converts an Eino message into the persisted shape.
func MessageFromSchema(m *schema.Message, ts time.Time) Message {
	out := Message{
		Content:    m.Content,
		Timestamp:  ts,
		ToolCallID: m.ToolCallID,
	}
	switch m.Role {
	case schema.Assistant:
		out.Type = MessageAI
	case schema.Tool:
		out.Type = MessageTool
	case schema.System:
		out.Type = MessageSystem
	default:
		out.Type = MessageHuman
	}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: tc.Function.Arguments,
		})
	}
	return out
}

// ToSchemaMessages converts a history into Eino messages.
func ToSchemaMessages(msgs []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ToSchema())
	}
	return out
}

// Thread is one user-visible conversation.
type Thread struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy safe to hand to a store.
func (t *Thread) Clone() *Thread {
	if t == nil {
		return nil
	}
	c := *t
	c.Messages = make([]Message, len(t.Messages))
	for i, m := range t.Messages {
		c.Messages[i] = m
		if m.ToolCalls != nil {
			c.Messages[i].ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
		}
	}
	return &c
}

type ConversationStore interface {
	// Load returns all persisted threads, newest first.
	Load(ctx context.Context) ([]*Thread, error)

	// Get returns a thread by id or ErrThreadNotFound.
	Get(ctx context.Context, id string) (*Thread, error)

	// Save upserts a thread and moves it to the front of the store.
	Save(ctx context.Context, thread *Thread) error

	// Delete removes a thread.
	Delete(ctx context.Context, id string) error
}

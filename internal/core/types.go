package core

import (
	"encoding/json"
	"time"
)

const (
	AppName          = "HackPal"
	AppUserAgent     = "HackPal-Agent/0.1"
	AppRepositoryURL = "https://github.com/sandevgo/hackpal"
	AppVersion       = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// SpeakerUser is the speaker recorded on turns written by the end user.
// Responder turns carry the responder name as speaker.
const SpeakerUser = "user"

type Function struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a single entry of a provider chat exchange.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Reasoning  string     `json:"reasoning,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// Turn is one immutable entry of a session's conversation history.
// Seq strictly increases per session starting at 1.
type Turn struct {
	SessionID string    `json:"session_id"`
	Seq       int64     `json:"seq"`
	Speaker   string    `json:"speaker"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUserTurn(sessionID, content string) Turn {
	return Turn{
		SessionID: sessionID,
		Speaker:   SpeakerUser,
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

func NewResponderTurn(sessionID, responder, content string) Turn {
	return Turn{
		SessionID: sessionID,
		Speaker:   responder,
		Role:      RoleAssistant,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// Document is an uploaded source file saved to a temporary path for the
// duration of a single request.
type Document struct {
	Name string
	Path string
}

// Passage is an indexed slice of a knowledge base source document.
type Passage struct {
	ID        int64
	SessionID string
	Index     int
	Content   string
	Hash      string
	Embedding []float32
	Score     float32
}

// KnowledgeRecord is the durable description of a session's knowledge base.
type KnowledgeRecord struct {
	SessionID    string
	SourceName   string
	DocumentHash string
	Passages     int
	CreatedAt    time.Time
}

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sandevgo/hackpal/internal/core"
)

const chatCompletionsPath = "/v1/chat/completions"

// OpenAICompatible speaks the chat completions dialect shared by OpenAI,
// OpenRouter, Ollama and self hosted gateways.
type OpenAICompatible struct {
	baseProvider
	headers map[string]string
}

type OpenAICompatibleConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	AuthHeader   string // e.g., "Authorization"
	AuthPrefix   string // e.g., "Bearer "
	ExtraHeaders map[string]string
}

func NewOpenAICompatible(cfg OpenAICompatibleConfig) *OpenAICompatible {
	headers := make(map[string]string, len(cfg.ExtraHeaders)+1)
	for k, v := range cfg.ExtraHeaders {
		headers[k] = v
	}
	// Local gateways such as Ollama run without a key.
	if cfg.AuthHeader != "" && cfg.APIKey != "" {
		headers[cfg.AuthHeader] = cfg.AuthPrefix + cfg.APIKey
	}
	return &OpenAICompatible{
		baseProvider: newBaseProvider(cfg.BaseURL, cfg.APIKey, cfg.Model),
		headers:      headers,
	}
}

type completionRequest struct {
	Model    string         `json:"model"`
	Messages []core.Message `json:"messages"`
	Tools    []core.Tool    `json:"tools,omitempty"`
}

type completionReply struct {
	Choices []struct {
		Message struct {
			core.Message
			ReasoningContent string `json:"reasoning_content,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	// Some gateways report upstream failures inside a 200 reply.
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

var errNoChoices = errors.New("reply carried no choices")

func (o *OpenAICompatible) Chat(ctx context.Context, history []core.Message, tools []core.Tool) (core.Message, error) {
	req := completionRequest{Model: o.model, Messages: history, Tools: tools}

	resp, err := o.doRequest(ctx, http.MethodPost, chatCompletionsPath, req, o.headers)
	if err != nil {
		return core.Message{}, err
	}
	defer resp.Body.Close()

	data, err := readOK(resp)
	if err != nil {
		return core.Message{}, err
	}

	var reply completionReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return core.Message{}, fmt.Errorf("decode completion: %w", err)
	}
	if reply.Error != nil {
		return core.Message{}, &StatusError{Code: http.StatusBadGateway, Body: reply.Error.Message}
	}
	if len(reply.Choices) == 0 {
		return core.Message{}, errNoChoices
	}

	choice := reply.Choices[0]
	msg := choice.Message.Message
	if msg.Reasoning == "" {
		msg.Reasoning = choice.Message.ReasoningContent
	}
	if msg.Role == "" {
		msg.Role = core.RoleAssistant
	}
	return msg, nil
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sandevgo/hackpal/internal/core"
)

type Anthropic struct {
	baseProvider
}

func NewAnthropic(apiKey, model string) *Anthropic {
	return &Anthropic{
		baseProvider: newBaseProvider("https://api.anthropic.com", apiKey, model),
	}
}

// Chat sends text turns only. System messages are joined into the top level
// system prompt; tool turns are flattened into user text.
func (a *Anthropic) Chat(ctx context.Context, history []core.Message, _ []core.Tool) (core.Message, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	var (
		system   []string
		messages []msg
	)
	for _, m := range history {
		switch m.Role {
		case core.RoleSystem:
			system = append(system, m.Content)
		case core.RoleTool:
			messages = append(messages, msg{Role: core.RoleUser, Content: "Tool result:\n" + m.Content})
		default:
			if m.Content == "" {
				continue
			}
			messages = append(messages, msg{Role: m.Role, Content: m.Content})
		}
	}

	payload := map[string]any{
		"model":      a.model,
		"max_tokens": 4096,
		"messages":   messages,
	}
	if len(system) > 0 {
		payload["system"] = strings.Join(system, "\n\n")
	}

	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": "2023-06-01",
	}

	resp, err := a.doRequest(ctx, http.MethodPost, "/v1/messages", payload, headers)
	if err != nil {
		return core.Message{}, err
	}
	defer resp.Body.Close()

	data, err := readOK(resp)
	if err != nil {
		return core.Message{}, err
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return core.Message{}, fmt.Errorf("decode: %w", err)
	}

	var text strings.Builder
	for _, c := range result.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	return core.Message{Role: core.RoleAssistant, Content: text.String()}, nil
}

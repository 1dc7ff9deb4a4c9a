package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/hackpal/internal/core"
	"google.golang.org/genai"
)

// Gemini adapts the genai SDK to the chat message model used by responders.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required for the gemini provider")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Chat(ctx context.Context, history []core.Message, tools []core.Tool) (core.Message, error) {
	system, contents, err := toGeminiContents(history)
	if err != nil {
		return core.Message{}, err
	}

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if decls := toGeminiDeclarations(tools); len(decls) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return core.Message{}, fmt.Errorf("genai generate: %w", err)
	}

	out := core.Message{Role: core.RoleAssistant, Content: resp.Text()}
	for i, fc := range resp.FunctionCalls() {
		args, err := json.Marshal(fc.Args)
		if err != nil {
			return core.Message{}, fmt.Errorf("encode function args: %w", err)
		}
		id := fc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		out.ToolCalls = append(out.ToolCalls, core.ToolCall{
			ID:   id,
			Type: "function",
			Function: core.FunctionCall{
				Name:      fc.Name,
				Arguments: string(args),
			},
		})
	}
	return out, nil
}

// toGeminiContents lifts system messages into a single instruction and groups
// consecutive tool results into one user content.
func toGeminiContents(history []core.Message) (string, []*genai.Content, error) {
	var (
		system   []string
		contents []*genai.Content
		pending  []*genai.Part
	)

	flushTools := func() {
		if len(pending) > 0 {
			contents = append(contents, genai.NewContentFromParts(pending, genai.RoleUser))
			pending = nil
		}
	}

	for _, m := range history {
		if m.Role != core.RoleTool {
			flushTools()
		}

		switch m.Role {
		case core.RoleSystem:
			system = append(system, m.Content)
		case core.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case core.RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				if tc.Function.Arguments != "" {
					if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
						return "", nil, fmt.Errorf("decode tool call args: %w", err)
					}
				}
				part := genai.NewPartFromFunctionCall(tc.Function.Name, args)
				part.FunctionCall.ID = tc.ID
				parts = append(parts, part)
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			}
		case core.RoleTool:
			part := genai.NewPartFromFunctionResponse(m.Name, map[string]any{"output": m.Content})
			part.FunctionResponse.ID = m.ToolCallID
			pending = append(pending, part)
		}
	}
	flushTools()

	return strings.Join(system, "\n\n"), contents, nil
}

func toGeminiDeclarations(tools []core.Tool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		d := &genai.FunctionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
		}
		if len(t.Function.Parameters) > 0 {
			d.ParametersJsonSchema = t.Function.Parameters
		}
		decls = append(decls, d)
	}
	return decls
}

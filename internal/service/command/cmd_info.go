package command

import (
	"context"
	"fmt"

	"github.com/sandevgo/hackpal/internal/core"
)

type ModelCommand struct {
	cfg       core.ProviderConfig
	formatter *ResponseFormatter
}

func NewModelCommand(cfg core.ProviderConfig) *ModelCommand {
	return &ModelCommand{
		cfg:       cfg,
		formatter: NewResponseFormatter(),
	}
}

func (c *ModelCommand) Name() string {
	return "model"
}

func (c *ModelCommand) Description() string {
	return "Show the current model"
}

func (c *ModelCommand) Execute(_ context.Context, _ core.ChatSession, _ []string) (string, error) {
	return c.formatter.Combine(
		c.formatter.Info("Current Model"),
		c.formatter.Label("Provider", c.cfg.GetProvider()),
		c.formatter.Label("Model", c.cfg.GetModel()),
		c.formatter.Tip("Change it with LLM_PROVIDER and LLM_MODEL"),
	), nil
}

type ToolsCommand struct {
	toolbox   core.Toolbox
	formatter *ResponseFormatter
}

func NewToolsCommand(toolbox core.Toolbox) *ToolsCommand {
	return &ToolsCommand{
		toolbox:   toolbox,
		formatter: NewResponseFormatter(),
	}
}

func (c *ToolsCommand) Name() string {
	return "tools"
}

func (c *ToolsCommand) Description() string {
	return "Show tools available to the General Assistant"
}

func (c *ToolsCommand) Execute(ctx context.Context, _ core.ChatSession, _ []string) (string, error) {
	var tools []core.Tool
	if c.toolbox != nil {
		var err error
		if tools, err = c.toolbox.GetTools(ctx); err != nil {
			return "", err
		}
	}

	if len(tools) == 0 {
		return c.formatter.Combine(
			c.formatter.Info("Tools"),
			c.formatter.Label("Status", "No tools are currently available."),
			c.formatter.Tip("Check your MCP server configuration if tools should be available"),
		), nil
	}

	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = fmt.Sprintf("**%s**", tool.Function.Name)
	}
	return c.formatter.Combine(
		c.formatter.Info("Tools"),
		c.formatter.Label("Available", fmt.Sprintf("%d", len(tools))),
		c.formatter.List(names),
	), nil
}

type TeamCommand struct {
	team      []string
	formatter *ResponseFormatter
}

func NewTeamCommand(team []string) *TeamCommand {
	return &TeamCommand{team: team, formatter: NewResponseFormatter()}
}

func (c *TeamCommand) Name() string {
	return "team"
}

func (c *TeamCommand) Description() string {
	return "List the HackPal responders"
}

func (c *TeamCommand) Execute(_ context.Context, _ core.ChatSession, _ []string) (string, error) {
	return c.formatter.Combine(
		c.formatter.Info("HackPal Team"),
		c.formatter.List(c.team),
		c.formatter.Tip("Messages are routed to one responder automatically"),
	), nil
}

type HelpCommand struct {
	list      func() []core.Command
	formatter *ResponseFormatter
}

func NewHelpCommand(list func() []core.Command) *HelpCommand {
	return &HelpCommand{list: list, formatter: NewResponseFormatter()}
}

func (c *HelpCommand) Name() string {
	return "help"
}

func (c *HelpCommand) Description() string {
	return "List available commands"
}

func (c *HelpCommand) Execute(_ context.Context, _ core.ChatSession, _ []string) (string, error) {
	var items []string
	for _, cmd := range c.list() {
		items = append(items, fmt.Sprintf("/%s  %s", cmd.Name(), cmd.Description()))
	}
	return c.formatter.Combine(
		c.formatter.Info("Commands"),
		c.formatter.List(items),
		c.formatter.Tip("Send a PDF, TXT or Markdown document to give HackPal context about you"),
	), nil
}

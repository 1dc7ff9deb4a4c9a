package command

import (
	"github.com/sandevgo/hackpal/internal/core"
)

// NewRouter builds the chat commands. help lists the router's own commands.
func NewRouter(
	cfg core.ProviderConfig,
	history HistoryReader,
	knowledge KnowledgeResolver,
	team []string,
	toolbox core.Toolbox,
) *Router {
	r := New(nil)
	for _, cmd := range []core.Command{
		NewResetSessionCommand(),
		NewSessionCommand(knowledge),
		NewHistoryCommand(history),
		NewTeamCommand(team),
		NewModelCommand(cfg),
		NewToolsCommand(toolbox),
		NewHelpCommand(r.ListCommands),
	} {
		r.commands[cmd.Name()] = cmd
	}
	return r
}

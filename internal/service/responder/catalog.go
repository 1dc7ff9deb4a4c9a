package responder

import (
	"fmt"

	"github.com/sandevgo/hackpal/internal/core"
)

const (
	IdeaGenerator    = "Idea Generator"
	CodeExplainer    = "Code Explainer"
	ErrorDebugger    = "Error Debugger"
	PDFAssistant     = "PDF Assistant"
	GeneralAssistant = "General Assistant"
)

var documentGrounding = []string{
	"Use the document context when it is provided and cite what it says.",
	"If the context holds partial information, share what it has instead of saying nothing is known.",
}

// DefaultDefinitions returns the five HackPal responders, each seeing the
// last historyWindow turns. A non-positive window means the default of 10.
func DefaultDefinitions(historyWindow int) []Definition {
	if historyWindow <= 0 {
		historyWindow = defaultHistoryWindow
	}
	all := Capabilities{KnowledgeSearch: true, HistoryWindow: historyWindow}

	return []Definition{
		{
			Name: IdeaGenerator,
			Role: "You generate innovative hackathon project ideas.",
			Instructions: append([]string{
				"Tailor ideas to the user's needs, skills and background.",
				"For each idea give a catchy name, a short description, 3-4 core features, a technical approach, likely challenges with solutions and the portfolio value.",
				"Keep every idea feasible within a 24-48 hour hackathon.",
			}, documentGrounding...),
			Capabilities: all,
		},
		{
			Name: CodeExplainer,
			Role: "You explain code snippets in plain English.",
			Instructions: append([]string{
				"Start with an overview of what the code accomplishes.",
				"Break down the key functions, variables and data structures, then the execution flow.",
				"Name the libraries or frameworks in use and suggest improvements.",
				"Match the explanation to the user's apparent technical level.",
			}, documentGrounding...),
			Capabilities: all,
		},
		{
			Name: ErrorDebugger,
			Role: "You debug code errors expertly.",
			Instructions: append([]string{
				"Explain what the error means and what caused it.",
				"Give step-by-step fixes with explicit code examples.",
				"Suggest how to prevent the error and which debugging tools help.",
				"Prefer fixes that can be applied quickly during a hackathon.",
			}, documentGrounding...),
			Capabilities: all,
		},
		{
			Name: PDFAssistant,
			Role: "You summarize and answer questions about uploaded documents.",
			Instructions: append([]string{
				"Extract the main topics and key points.",
				"Identify skills, experience, projects, education and goals mentioned in the document.",
				"Answer specific questions with the matching details from the document.",
				"Say plainly when no document has been uploaded for this session.",
			}, documentGrounding...),
			Capabilities: all,
		},
		{
			Name: GeneralAssistant,
			Role: "You are HackPal, a knowledgeable hackathon assistant.",
			Instructions: append([]string{
				"Help with hackathons, programming and technology questions.",
				"Use web search for questions that need up-to-date information.",
				"Relate advice to the user's background when the document context describes it.",
				"Keep the whole conversation in mind when answering.",
			}, documentGrounding...),
			Capabilities: Capabilities{KnowledgeSearch: true, ExternalTools: true, HistoryWindow: historyWindow},
		},
	}
}

// Catalog holds one Responder per definition name.
type Catalog struct {
	byName map[string]*Responder
	names  []string
}

func NewCatalog(ai core.AIProvider, toolbox core.Toolbox, opts Options, defs ...Definition) (*Catalog, error) {
	if len(defs) == 0 {
		defs = DefaultDefinitions(opts.HistoryWindow)
	}

	c := &Catalog{byName: make(map[string]*Responder, len(defs))}
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byName[def.Name]; dup {
			return nil, fmt.Errorf("duplicate responder %q", def.Name)
		}
		c.byName[def.Name] = New(def, ai, toolbox, opts)
		c.names = append(c.names, def.Name)
	}
	return c, nil
}

func (c *Catalog) Get(name string) (*Responder, bool) {
	r, ok := c.byName[name]
	return r, ok
}

// Names lists responders in definition order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

package router

import (
	"context"
	"strings"

	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/pkg/log"
)

const classifierPrompt = `You route messages for HackPal, a hackathon assistant team.
Reply with exactly one label and nothing else:
- ideation: project brainstorming, ideation or concept development
- code-explanation: understanding code, concepts or implementation details
- debugging: fixing errors, troubleshooting or resolving technical issues
- document-summary: questions about the uploaded document or deep document analysis
- general: general advice, technology questions or multi-faceted requests`

// ModelClassifier asks the language model for the intent label and falls
// back to the rule scorer on errors or unknown labels.
type ModelClassifier struct {
	ai       core.AIProvider
	fallback *RuleClassifier
}

func NewModelClassifier(ai core.AIProvider) *ModelClassifier {
	return &ModelClassifier{ai: ai, fallback: NewRuleClassifier()}
}

func (c *ModelClassifier) Classify(ctx context.Context, in ClassifyInput) (Classification, error) {
	logger := log.FromCtx(ctx)

	prompt := classifierPrompt
	switch {
	case in.NewDocument:
		prompt += "\nThe user uploaded a document with this message."
	case in.HasKnowledge:
		prompt += "\nThe user uploaded a document earlier in this session."
	}

	reply, err := c.ai.Chat(ctx, []core.Message{
		{Role: core.RoleSystem, Content: prompt},
		{Role: core.RoleUser, Content: in.Message},
	}, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("model classifier failed, using rules")
		return c.fallback.classify(in), nil
	}

	intent, ok := parseIntent(reply.Content)
	if !ok {
		logger.Warn().Str("label", reply.Content).Msg("model classifier returned unknown label, using rules")
		return c.fallback.classify(in), nil
	}
	return Classification{Intent: intent, Rationale: "model label " + string(intent)}, nil
}

func parseIntent(label string) (Intent, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.Trim(label, " \t\n.`*\"'")
	for _, intent := range Intents {
		if label == string(intent) {
			return intent, true
		}
	}
	return "", false
}

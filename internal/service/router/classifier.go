package router

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

type Intent string

const (
	IntentIdeation        Intent = "ideation"
	IntentCodeExplanation Intent = "code-explanation"
	IntentDebugging       Intent = "debugging"
	IntentDocumentSummary Intent = "document-summary"
	IntentGeneral         Intent = "general"
)

// Intents lists every category in routing priority order.
var Intents = []Intent{
	IntentIdeation,
	IntentCodeExplanation,
	IntentDebugging,
	IntentDocumentSummary,
	IntentGeneral,
}

type ClassifyInput struct {
	Message      string
	HasKnowledge bool
	NewDocument  bool
}

type Classification struct {
	Intent    Intent
	Rationale string
}

// Classifier is the intent policy of the router.
type Classifier interface {
	Classify(ctx context.Context, in ClassifyInput) (Classification, error)
}

type keyword struct {
	label  string
	weight int
	re     *regexp.Regexp
}

func kw(label string, weight int, pattern string) keyword {
	return keyword{label: label, weight: weight, re: regexp.MustCompile(`(?i)` + pattern)}
}

var defaultKeywords = map[Intent][]keyword{
	IntentIdeation: {
		kw("idea", 2, `\bideas?\b`),
		kw("brainstorm", 2, `\bbrainstorm\w*`),
		kw("project", 1, `\bprojects?\b`),
		kw("suggest", 1, `\bsuggest\w*`),
		kw("concept", 1, `\bconcepts?\b`),
	},
	IntentCodeExplanation: {
		kw("explain", 2, `\bexplain\w*`),
		kw("walk me through", 2, `\bwalk me through\b`),
		kw("what does", 1, `\bwhat does\b`),
		kw("how does", 1, `\bhow does\b`),
		kw("code", 1, "```|\\bcode\\b|\\bsnippet\\b"),
	},
	IntentDebugging: {
		kw("error", 2, `\berrors?\b`),
		kw("exception", 2, `\bexceptions?\b`),
		kw("traceback", 2, `\btraceback\b|\bstack ?trace\b`),
		kw("bug", 2, `\bbugs?\b|\bdebug\w*`),
		kw("crash", 2, `\bcrash\w*|\bpanic\w*`),
		kw("not working", 2, `\bnot working\b|\bdoesn'?t work\b`),
		kw("fix", 1, `\bfix\w*`),
		kw("fails", 1, `\bfail\w*`),
	},
	IntentDocumentSummary: {
		kw("summary", 2, `\bsummar\w*`),
		kw("pdf", 2, `\bpdf\b`),
		kw("resume", 2, `\bresume\b|\bcv\b`),
		kw("key points", 2, `\bkey points\b`),
		kw("document", 1, `\bdocuments?\b|\buploaded\b`),
		kw("skills", 1, `\bskills?\b`),
		kw("listed", 1, `\blisted\b|\bmentioned\b`),
	},
}

const (
	defaultThreshold = 2
	newDocumentBoost = 2
)

// RuleClassifier scores weighted keywords per intent. The unique top score
// wins when it reaches the threshold; anything else is general.
type RuleClassifier struct {
	keywords  map[Intent][]keyword
	threshold int
}

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{keywords: defaultKeywords, threshold: defaultThreshold}
}

func (c *RuleClassifier) Classify(_ context.Context, in ClassifyInput) (Classification, error) {
	return c.classify(in), nil
}

func (c *RuleClassifier) classify(in ClassifyInput) Classification {
	scores := make(map[Intent]int, len(c.keywords))
	matched := make(map[Intent][]string, len(c.keywords))

	for intent, kws := range c.keywords {
		for _, k := range kws {
			if k.re.MatchString(in.Message) {
				scores[intent] += k.weight
				matched[intent] = append(matched[intent], k.label)
			}
		}
	}
	if in.NewDocument {
		scores[IntentDocumentSummary] += newDocumentBoost
		matched[IntentDocumentSummary] = append(matched[IntentDocumentSummary], "new document")
	}

	best, bestScore, tie := IntentGeneral, 0, false
	for _, intent := range Intents {
		s := scores[intent]
		switch {
		case s > bestScore:
			best, bestScore, tie = intent, s, false
		case s == bestScore && s > 0:
			tie = true
		}
	}

	switch {
	case bestScore == 0:
		return Classification{Intent: IntentGeneral, Rationale: "no intent keywords matched"}
	case tie:
		return Classification{Intent: IntentGeneral, Rationale: fmt.Sprintf("tie at score %d", bestScore)}
	case bestScore < c.threshold:
		return Classification{Intent: IntentGeneral, Rationale: fmt.Sprintf("%s score %d below threshold", best, bestScore)}
	}

	labels := matched[best]
	sort.Strings(labels)
	return Classification{
		Intent:    best,
		Rationale: fmt.Sprintf("matched %s (score %d)", strings.Join(labels, ", "), bestScore),
	}
}

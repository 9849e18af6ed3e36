package answer

import "strings"

// Judge reasons, recorded in the retrieval debug of every answer.
const (
	ReasonWebDisabled     = "web_disabled"
	ReasonRAGConfident    = "rag_confident"
	ReasonForcedByUser    = "forced_by_user"
	ReasonDefinition      = "definition_with_weak_rag"
	ReasonNoHits          = "no_hits"
	ReasonDefaultNoSearch = "default_no_search"
)

// definitionalPhrases mark questions that reference material can answer even
// when the indexed context is weak.
var definitionalPhrases = []string{
	"what is", "define", "explain", "describe",
	"derivation", "proof", "how does", "why is",
}

// JudgeInput is everything the web judge looks at.
type JudgeInput struct {
	Question string
	Enabled  bool
	Force    bool

	// HitCount and TopScore describe the retrieval result after score
	// filtering.
	HitCount int
	TopScore float64

	// MinHits and MinScore are the confidence gates; a zero value disables
	// that gate.
	MinHits  int
	MinScore float64
}

// Decision is the judge's verdict.
type Decision struct {
	Search bool
	Reason string
}

// Judge decides whether a question should fall back to web search. The
// precedence is fixed: disabled wins over everything; confident retrieval
// skips the web unless the user forced it; forced always searches; then
// definitional questions and zero-hit questions search; anything else does
// not. Judge is a pure function with no I/O.
func Judge(in JudgeInput) Decision {
	if !in.Enabled {
		return Decision{Reason: ReasonWebDisabled}
	}

	skipByHits := in.MinHits > 0 && in.HitCount >= in.MinHits
	skipByScore := in.MinScore > 0 && in.TopScore >= in.MinScore
	if (skipByHits || skipByScore) && !in.Force {
		return Decision{Reason: ReasonRAGConfident}
	}
	if in.Force {
		return Decision{Search: true, Reason: ReasonForcedByUser}
	}

	if looksDefinitional(in.Question) {
		return Decision{Search: true, Reason: ReasonDefinition}
	}
	if in.HitCount == 0 {
		return Decision{Search: true, Reason: ReasonNoHits}
	}
	return Decision{Reason: ReasonDefaultNoSearch}
}

func looksDefinitional(question string) bool {
	q := strings.ToLower(question)
	for _, phrase := range definitionalPhrases {
		if strings.Contains(q, phrase) {
			return true
		}
	}
	return false
}

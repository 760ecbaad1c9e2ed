package usecase

import (
	"context"
	"errors"
	"log"
	"strings"

	childdomain "schoolsync-backend/internal/child/domain"
	emaildomain "schoolsync-backend/internal/email/domain"
	"schoolsync-backend/internal/sync/matcher"
	"schoolsync-backend/pkg/ai"
)

// AttributionSource records how a message ended up assigned to a child
type AttributionSource string

const (
	// SourceRuleExact: exactly one child's rules matched the sender; the
	// classifier only confirmed (or failed to contradict) it.
	SourceRuleExact AttributionSource = "rule-exact"
	// SourceRuleAmbiguous: several children matched; the classifier (or
	// first-match order) broke the tie.
	SourceRuleAmbiguous AttributionSource = "rule-ambiguous-then-ai"
	// SourceAIOnly: no rule matched; the classifier chose from all
	// configured children.
	SourceAIOnly AttributionSource = "ai-only"
	// SourceFallbackDefault: nothing matched and the classifier had no
	// answer; assigned to the first configured child so the message is
	// never dropped silently.
	SourceFallbackDefault AttributionSource = "fallback-default"
)

// ErrNoChildren means attribution is impossible: the user has no child
// profiles, so the message must be skipped, never defaulted.
var ErrNoChildren = errors.New("no children configured")

// AttributionDecision is the resolved outcome for one message
type AttributionDecision struct {
	Child      *childdomain.Child
	Candidates []*childdomain.Child
	Source     AttributionSource
	// Analysis is nil when the classifier call failed; the email is then
	// persisted attributed-but-unprocessed.
	Analysis *ai.EmailAnalysis
}

// resolveAttribution reconciles the deterministic rule match with the
// probabilistic classifier into exactly one child assignment. Precedence:
//  1. a single rule match restricts the classifier to that one child and
//     wins over any failed or out-of-set classifier answer
//  2. multiple rule matches restrict the candidate list; an exact
//     classifier name picks the child, otherwise the first match does
//  3. with no rule match the classifier chooses among all children; if it
//     cannot, the message falls back to the first configured child
//
// The classifier's childName is only trusted when it names a candidate,
// compared case-insensitively.
func (u *syncUsecase) resolveAttribution(ctx context.Context, msg *emaildomain.InboxMessage, children []*childdomain.Child) (*AttributionDecision, error) {
	if len(children) == 0 {
		return nil, ErrNoChildren
	}

	matched := matcher.MatchChildren(msg.Sender, children)

	var candidates []*childdomain.Child
	var preferred *childdomain.Child
	var source AttributionSource

	switch len(matched) {
	case 1:
		preferred = matched[0]
		candidates = matched
		source = SourceRuleExact
	case 0:
		candidates = children
		source = SourceAIOnly
	default:
		candidates = matched
		source = SourceRuleAmbiguous
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}

	preferredName := ""
	if preferred != nil {
		preferredName = preferred.Name
	}

	text := msg.Body
	if text == "" {
		text = msg.Preview
	}

	analysis, err := u.analyzer.AnalyzeEmail(ctx, text, names, preferredName)
	if err != nil {
		log.Printf("[Sync] Classifier failed for %q: %v", msg.Subject, err)
		analysis = nil
	}

	var resolved *childdomain.Child
	if analysis != nil && analysis.ChildName != "" {
		for _, c := range candidates {
			if strings.EqualFold(c.Name, analysis.ChildName) {
				resolved = c
				break
			}
		}
	}

	if resolved == nil {
		switch {
		case preferred != nil:
			resolved = preferred
		case len(matched) > 0:
			resolved = matched[0]
		default:
			resolved = children[0]
			source = SourceFallbackDefault
		}
	}

	return &AttributionDecision{
		Child:      resolved,
		Candidates: candidates,
		Source:     source,
		Analysis:   analysis,
	}, nil
}

package knowledge

import (
	"strings"

	"artivox/internal/domain"
)

// ScoreWeights tunes the keyword relevance heuristic. The defaults carry
// over from the assistant this store was tuned for; they are a policy
// knob, not a law.
type ScoreWeights struct {
	Summary  int // single hit when the query appears in the summary
	KeyPoint int // per key point containing the query
	Topic    int // per topic containing the query
	Context  int // single hit when the query appears in the context
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Summary: 3, KeyPoint: 2, Topic: 2, Context: 1}
}

func (w ScoreWeights) isZero() bool {
	return w.Summary == 0 && w.KeyPoint == 0 && w.Topic == 0 && w.Context == 0
}

// relevanceScore accumulates weighted case-insensitive substring hits.
// query must already be lowercased.
func relevanceScore(e *domain.KnowledgeEntry, query string, w ScoreWeights) int {
	score := 0

	if strings.Contains(strings.ToLower(e.Summary), query) {
		score += w.Summary
	}
	for _, point := range e.KeyPoints {
		if strings.Contains(strings.ToLower(point), query) {
			score += w.KeyPoint
		}
	}
	for _, topic := range e.Topics {
		if strings.Contains(strings.ToLower(topic), query) {
			score += w.Topic
		}
	}
	if strings.Contains(strings.ToLower(e.Context), query) {
		score += w.Context
	}

	return score
}

// Package reconcile compares the scraped catalog against the remote storage
// inventory and decides which items still need acquiring. Matching is fuzzy:
// release names on both sides are normalized first, then scored with a blend
// of character-level and token-level similarity.
package reconcile

import (
	"fmt"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"reelsync/internal/title"
)

// Matcher scores normalized titles against one another. The blended score is
// simWeight * bigram Dice similarity + tokenWeight * token overlap, and the
// weights must sum to one.
type Matcher struct {
	dice        *metrics.SorensenDice
	simWeight   float64
	tokenWeight float64
	threshold   float64
}

// NewMatcher builds a matcher from the matching weights and the acceptance
// threshold. A candidate counts as a match only when its blended score is
// strictly above the threshold.
func NewMatcher(simWeight, tokenWeight, threshold float64) (*Matcher, error) {
	if sum := simWeight + tokenWeight; sum < 0.999 || sum > 1.001 {
		return nil, fmt.Errorf("matching weights must sum to 1, got %.3f", sum)
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("matching threshold must be in (0, 1), got %.3f", threshold)
	}
	dice := metrics.NewSorensenDice()
	dice.CaseSensitive = false
	dice.NgramSize = 2
	return &Matcher{
		dice:        dice,
		simWeight:   simWeight,
		tokenWeight: tokenWeight,
		threshold:   threshold,
	}, nil
}

// Threshold reports the acceptance threshold the matcher enforces.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Score blends the similarity of two normalized titles.
func (m *Matcher) Score(normalizedTarget, normalizedCandidate string) float64 {
	dice := m.diceScore(normalizedTarget, normalizedCandidate)
	overlap := tokenOverlap(title.Tokens(normalizedTarget), title.Tokens(normalizedCandidate))
	return m.simWeight*dice + m.tokenWeight*overlap
}

// diceScore is the character-level half of the blend. Either side too short
// to form a bigram scores zero instead of the degenerate values the metric
// would otherwise produce.
func (m *Matcher) diceScore(normalizedTarget, normalizedCandidate string) float64 {
	if len(normalizedTarget) < 2 || len(normalizedCandidate) < 2 {
		return 0
	}
	return strutil.Similarity(normalizedTarget, normalizedCandidate, m.dice)
}

// BestMatch selects the pool entry with the highest bigram Dice similarity,
// ties resolved in favor of the earliest index, and returns that entry's
// blended score. Token overlap influences the returned score but never the
// selection. An empty pool returns index -1.
func (m *Matcher) BestMatch(normalizedTarget string, normalizedPool []string) (int, float64) {
	bestIndex := -1
	bestDice := 0.0
	for i, candidate := range normalizedPool {
		dice := m.diceScore(normalizedTarget, candidate)
		if bestIndex == -1 || dice > bestDice {
			bestIndex = i
			bestDice = dice
		}
	}
	if bestIndex == -1 {
		return -1, 0
	}
	overlap := tokenOverlap(title.Tokens(normalizedTarget), title.Tokens(normalizedPool[bestIndex]))
	return bestIndex, m.simWeight*bestDice + m.tokenWeight*overlap
}

// Matches reports whether a blended score clears the acceptance threshold.
func (m *Matcher) Matches(score float64) bool {
	return score > m.threshold
}

// tokenOverlap measures what fraction of the catalog title's tokens also
// appear in the remote name. The denominator is the title side: a remote
// filename that contains every title word scores 1.0 no matter how much
// release noise it carries beyond them.
func tokenOverlap(targetTokens, candidateTokens []string) float64 {
	if len(targetTokens) == 0 {
		return 0
	}
	candidateSet := make(map[string]struct{}, len(candidateTokens))
	for _, token := range candidateTokens {
		candidateSet[token] = struct{}{}
	}
	shared := 0
	for _, token := range targetTokens {
		if _, ok := candidateSet[token]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(targetTokens))
}

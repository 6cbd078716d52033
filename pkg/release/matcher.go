package release

import (
	"regexp"

	"github.com/hbollon/go-edlib"
)

var numberRegex = regexp.MustCompile(`\b(\d+)\b`)

// MatchConfidence represents the confidence level of a title match.
type MatchConfidence int

const (
	ConfidenceNone   MatchConfidence = iota // Score < 0.70
	ConfidenceLow                           // Score >= 0.70
	ConfidenceMedium                        // Score >= 0.85
	ConfidenceHigh                          // Score >= 0.95
)

func (c MatchConfidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "none"
	}
}

func confidenceFor(score float64) MatchConfidence {
	switch {
	case score >= 0.95:
		return ConfidenceHigh
	case score >= 0.85:
		return ConfidenceMedium
	case score >= 0.70:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// MatchResult is the best candidate found by MatchTitle.
type MatchResult struct {
	Title      string
	Score      float64 // Jaro-Winkler similarity, adjusted for sequence numbers
	Confidence MatchConfidence
}

// MatchTitle finds the best match for a parsed release title among candidate
// library titles. Jaro-Winkler favours shared prefixes, which suits media
// titles; matching sequence numbers ("Part 2") nudge the score up and
// mismatched ones pull it down.
func MatchTitle(parsed string, candidates []string) MatchResult {
	best := MatchResult{Confidence: ConfidenceNone}
	if len(candidates) == 0 {
		return best
	}

	cleanParsed := CleanTitle(parsed)
	parsedNums := numberRegex.FindAllString(cleanParsed, -1)

	for _, candidate := range candidates {
		cleanCandidate := CleanTitle(candidate)
		score := float64(edlib.JaroWinklerSimilarity(cleanParsed, cleanCandidate))
		score = adjustForNumbers(score, parsedNums, numberRegex.FindAllString(cleanCandidate, -1))
		if score > best.Score {
			best.Title = candidate
			best.Score = score
		}
	}

	best.Confidence = confidenceFor(best.Score)
	if best.Confidence == ConfidenceNone {
		best.Title = ""
	}
	return best
}

func adjustForNumbers(score float64, parsedNums, candidateNums []string) float64 {
	if len(parsedNums) == 0 {
		return score
	}
	if len(candidateNums) == 0 {
		return score * 0.85
	}

	candidateSet := make(map[string]bool, len(candidateNums))
	for _, n := range candidateNums {
		candidateSet[n] = true
	}
	for _, n := range parsedNums {
		if candidateSet[n] {
			return min(score*1.05, 1.0)
		}
	}
	return score * 0.90
}

package types

import "fmt"

// AnalysisKind identifies one of the independent transcript analyses
type AnalysisKind string

const (
	AnalysisTopics     AnalysisKind = "topics"
	AnalysisKeyMoments AnalysisKind = "key_moments"
	AnalysisKeyTerms   AnalysisKind = "key_terms"
)

// AllAnalysisKinds returns all analysis kinds in generation order.
// The order (topics, key moments, key terms) is fixed so that logs and
// tests are deterministic.
func AllAnalysisKinds() []AnalysisKind {
	return []AnalysisKind{
		AnalysisTopics,
		AnalysisKeyMoments,
		AnalysisKeyTerms,
	}
}

// IsValid checks if the analysis kind is valid
func (k AnalysisKind) IsValid() bool {
	switch k {
	case AnalysisTopics, AnalysisKeyMoments, AnalysisKeyTerms:
		return true
	default:
		return false
	}
}

// String returns the string representation of the analysis kind
func (k AnalysisKind) String() string {
	return string(k)
}

// ParseAnalysisKind parses a string into an AnalysisKind
func ParseAnalysisKind(s string) (AnalysisKind, error) {
	kind := AnalysisKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid analysis kind: %s", s)
	}
	return kind, nil
}

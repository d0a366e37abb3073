package generator

import "fmt"

// NoGuidelineError is returned when a draft matches no catalog example.
// Generation cannot proceed without one.
type NoGuidelineError struct {
	Goal             string
	MatchedExampleID string
}

func (e *NoGuidelineError) Error() string {
	if e.MatchedExampleID != "" {
		return fmt.Sprintf("no campaign example %q and none matches goal %q", e.MatchedExampleID, e.Goal)
	}
	return fmt.Sprintf("no campaign example matches goal %q", e.Goal)
}

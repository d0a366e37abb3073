package campaign

import (
	"fmt"
	"strings"
)

// ValidationError collects every rule a campaign failed before save
type ValidationError struct {
	Problems []string `json:"problems"`
}

func (e *ValidationError) Error() string {
	return "campaign is not valid: " + strings.Join(e.Problems, "; ")
}

// Has reports whether a problem with the exact message was recorded
func (e *ValidationError) Has(problem string) bool {
	for _, p := range e.Problems {
		if p == problem {
			return true
		}
	}
	return false
}

// SaveRequest is everything the save path checks
type SaveRequest struct {
	UserID    string
	ProjectID string
	Record    *Record
	Steps     []EmailStep
}

// Validate checks a campaign before it reaches the store. It returns nil or a
// *ValidationError listing every failed rule, never just the first.
func Validate(req SaveRequest) error {
	var problems []string

	rec := req.Record
	if rec == nil {
		rec = &Record{}
	}

	if strings.TrimSpace(rec.Name) == "" {
		problems = append(problems, "Campaign name is required")
	}
	switch {
	case rec.Type == "":
		problems = append(problems, "Campaign type is required")
	case !rec.Type.Valid():
		problems = append(problems, fmt.Sprintf("Campaign type %q is not supported", rec.Type))
	}
	if strings.TrimSpace(rec.TargetAudience) == "" {
		problems = append(problems, "Target audience is required")
	}
	if strings.TrimSpace(rec.CampaignGoal) == "" {
		problems = append(problems, "Campaign goal is required")
	}
	if len(req.Steps) == 0 {
		problems = append(problems, "At least one email step is required")
	}
	if req.UserID == "" {
		problems = append(problems, "You must be signed in to save a campaign")
	}
	if req.ProjectID == "" {
		problems = append(problems, "A project must be selected")
	}

	for i, s := range req.Steps {
		n := i + 1
		if strings.TrimSpace(s.Subject) == "" {
			problems = append(problems, fmt.Sprintf("Step %d: subject is required", n))
		}
		if strings.TrimSpace(s.Content) == "" {
			problems = append(problems, fmt.Sprintf("Step %d: content is required", n))
		}
		if !s.DelayUnit.Valid() {
			problems = append(problems, fmt.Sprintf("Step %d: delay unit must be %q or %q", n, DelayImmediately, DelayBusinessDays))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

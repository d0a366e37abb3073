package campaign

// Draft accumulates a campaign description across conversation turns.
// EnablePersonalization is nil until the user has answered.
type Draft struct {
	Goal                  string      `json:"goal,omitempty"`
	MatchedExampleID      string      `json:"matchedExampleId,omitempty"`
	Type                  Type        `json:"type,omitempty"`
	TargetAudience        string      `json:"targetAudience,omitempty"`
	Tone                  Tone        `json:"tone,omitempty"`
	EmailLength           EmailLength `json:"emailLength,omitempty"`
	AdditionalContext     string      `json:"additionalContext,omitempty"`
	EnablePersonalization *bool       `json:"enablePersonalization,omitempty"`
	CompanyName           string      `json:"companyName,omitempty"`
	RecruiterName         string      `json:"recruiterName,omitempty"`
}

// Personalized reports whether personalization was explicitly enabled
func (d Draft) Personalized() bool {
	return d.EnablePersonalization != nil && *d.EnablePersonalization
}

// Length returns the requested email length or the default
func (d Draft) Length() EmailLength {
	if d.EmailLength.Valid() {
		return d.EmailLength
	}
	return DefaultLength
}

// Clone returns a deep copy of the draft
func (d Draft) Clone() Draft {
	out := d
	if d.EnablePersonalization != nil {
		v := *d.EnablePersonalization
		out.EnablePersonalization = &v
	}
	return out
}

// Bool returns a pointer to v, for tri-state draft fields
func Bool(v bool) *bool {
	return &v
}

package campaign

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func validRequest() SaveRequest {
	return SaveRequest{
		UserID:    "user-1",
		ProjectID: "project-1",
		Record: &Record{
			Name:           "ICU nurses nurture",
			Type:           TypeNurture,
			TargetAudience: "ICU nurses in Denver",
			CampaignGoal:   "build talent community",
		},
		Steps: []EmailStep{
			{ID: 1, Type: StepEmail, Subject: "Hello", Content: "<p>Hi</p>", DelayUnit: DelayImmediately},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SaveRequest)
		want   []string
	}{
		{
			name:   "valid",
			mutate: func(r *SaveRequest) {},
		},
		{
			name:   "missing target audience",
			mutate: func(r *SaveRequest) { r.Record.TargetAudience = "" },
			want:   []string{"Target audience is required"},
		},
		{
			name: "everything missing",
			mutate: func(r *SaveRequest) {
				*r = SaveRequest{}
			},
			want: []string{
				"Campaign name is required",
				"Campaign type is required",
				"Target audience is required",
				"Campaign goal is required",
				"At least one email step is required",
				"You must be signed in to save a campaign",
				"A project must be selected",
			},
		},
		{
			name: "bad steps",
			mutate: func(r *SaveRequest) {
				r.Steps = append(r.Steps, EmailStep{ID: 2, Subject: " ", Content: "", DelayUnit: "weeks"})
			},
			want: []string{
				"Step 2: subject is required",
				"Step 2: content is required",
				`Step 2: delay unit must be "immediately" or "business days"`,
			},
		},
		{
			name:   "unknown type",
			mutate: func(r *SaveRequest) { r.Record.Type = "cold" },
			want:   []string{`Campaign type "cold" is not supported`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			err := Validate(req)
			if len(tt.want) == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if diff := cmp.Diff(tt.want, verr.Problems); diff != "" {
				t.Errorf("Validate() problems mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeDelays(t *testing.T) {
	steps := []EmailStep{
		{ID: 1, Delay: 4, DelayUnit: DelayBusinessDays},
		{ID: 2, Delay: -1, DelayUnit: DelayImmediately},
		{ID: 3, Delay: 5},
	}
	NormalizeDelays(steps)

	want := []EmailStep{
		{ID: 1, Delay: 0, DelayUnit: DelayImmediately},
		{ID: 2, Delay: 0, DelayUnit: DelayBusinessDays},
		{ID: 3, Delay: 5, DelayUnit: DelayBusinessDays},
	}
	if diff := cmp.Diff(want, steps); diff != "" {
		t.Errorf("NormalizeDelays() mismatch (-want +got):\n%s", diff)
	}
}

func TestRowsRoundTripKeepsOrder(t *testing.T) {
	steps := []EmailStep{
		{ID: 7, Type: StepEmail, Subject: "a", Content: "x", DelayUnit: DelayImmediately},
		{ID: 3, Type: StepConnection, Subject: "b", Content: "y", Delay: 2, DelayUnit: DelayBusinessDays},
	}
	rows := ToRows("c1", steps)
	if rows[0].StepOrder != 1 || rows[1].StepOrder != 2 {
		t.Fatalf("step_order = %d,%d, want 1,2", rows[0].StepOrder, rows[1].StepOrder)
	}
	back := FromRows(rows)
	if back[1].Subject != "b" || back[1].ID != 2 {
		t.Errorf("FromRows() second step = %+v", back[1])
	}
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord("u", "p", Data{
		Name:                  "n",
		Type:                  TypeReengage,
		AdditionalContext:     "  keep <b>this</b>  ",
		EnablePersonalization: true,
	})
	if rec.Status != StatusDraft {
		t.Errorf("Status = %q, want draft", rec.Status)
	}
	if rec.AIInstructions == nil || *rec.AIInstructions != "  keep <b>this</b>  " {
		t.Errorf("AIInstructions = %v, want verbatim context", rec.AIInstructions)
	}
	if !rec.Settings.EnablePersonalization {
		t.Error("Settings.EnablePersonalization = false, want true")
	}
	if rec.ContentSources == nil {
		t.Error("ContentSources should default to an empty list")
	}
}

package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxzi/recruitflow/internal/campaign"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.Greater(t, c.Len(), 0)

	for _, ex := range c.All() {
		assert.True(t, ex.CampaignType.Valid(), "example %s", ex.ID)
		assert.Greater(t, ex.SequenceAndExamples.Steps, 0, "example %s", ex.ID)
		assert.NotEmpty(t, ex.SequenceAndExamples.Examples, "example %s", ex.ID)
	}
}

func TestMatch(t *testing.T) {
	c := Default()

	tests := []struct {
		goal string
		typ  campaign.Type
		want string
	}{
		{"build talent community", "", "talent-community-nurture"},
		{"re-engage people who abandoned their application", "", "past-applicant-reengage"},
		{"bring back former employees", "", "boomerang-reengage"},
		{"get updated resumes and licenses", "", "profile-enrichment"},
		{"invite nurses to our virtual career fair", "", "hiring-event-invite"},
		{"check in occasionally", campaign.TypeKeepWarm, "silver-medalist-keep-warm"},
		{"stay in touch", campaign.TypeKeepWarm, "pipeline-keep-warm"},
	}

	for _, tt := range tests {
		t.Run(tt.goal, func(t *testing.T) {
			ex, _, ok := c.Match(tt.goal, tt.typ)
			require.True(t, ok)
			assert.Equal(t, tt.want, ex.ID)
		})
	}
}

func TestMatchFallsBackToClosest(t *testing.T) {
	c := Default()

	ex, score, ok := c.Match("zzz qqq", "")
	require.True(t, ok)
	assert.Equal(t, 0, score)
	assert.Equal(t, c.All()[0].ID, ex.ID, "ties go to catalog order")

	_, found := c.FindByGoal("zzz qqq")
	assert.False(t, found, "below the relevance bar")
}

func TestTiesBreakByCatalogOrder(t *testing.T) {
	c, err := New([]Example{
		{ID: "first", CampaignType: campaign.TypeNurture, Goal: "grow nurses", SequenceAndExamples: Sequence{Steps: 1}},
		{ID: "second", CampaignType: campaign.TypeNurture, Goal: "grow nurses", SequenceAndExamples: Sequence{Steps: 1}},
	})
	require.NoError(t, err)

	ex, _, _ := c.Match("grow nurses", "")
	assert.Equal(t, "first", ex.ID)
}

func TestNewRejectsBadExamples(t *testing.T) {
	_, err := New([]Example{{ID: "a", CampaignType: "cold"}})
	assert.Error(t, err)

	_, err = New([]Example{
		{ID: "a", CampaignType: campaign.TypeNurture},
		{ID: "a", CampaignType: campaign.TypeNurture},
	})
	assert.Error(t, err)

	_, _, ok := (&Catalog{}).Match("anything", "")
	assert.False(t, ok)
}

func TestGet(t *testing.T) {
	c := Default()
	ex, ok := c.Get("profile-enrichment")
	require.True(t, ok)
	assert.Equal(t, campaign.TypeEnrichment, ex.CampaignType)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

package placeholder

import (
	"context"
	"testing"

	"trialdesk/domain/trial"
	"trialdesk/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.RiskPredictor    = (*RiskModel)(nil)
	_ ports.SuggestionSource = (*RiskModel)(nil)
	_ ports.TrialFinder      = (*Catalog)(nil)
)

func TestRiskModelIgnoresInput(t *testing.T) {
	model := NewRiskModel()
	ctx := context.Background()

	inputs := []trial.TrialAttributes{
		{},
		{Title: "Phase II nivolumab", Eligibility: "ECOG 0-1", Description: "single arm"},
	}
	for _, attrs := range inputs {
		risk, err := model.PredictRisk(ctx, attrs)
		require.NoError(t, err)
		assert.Equal(t, 76, risk)

		attrs.AppliedSuggestions = DesignSuggestions
		risk, err = model.PredictRisk(ctx, attrs)
		require.NoError(t, err)
		assert.Equal(t, 42, risk)
	}
}

func TestSuggestReturnsCopy(t *testing.T) {
	model := NewRiskModel()
	suggestions, err := model.Suggest(context.Background(), trial.TrialAttributes{})
	require.NoError(t, err)
	require.Len(t, suggestions, 4)

	suggestions[0] = "changed"
	assert.NotEqual(t, "changed", DesignSuggestions[0])
}

func TestCatalogReturnsFixedRecords(t *testing.T) {
	catalog := NewCatalog()
	queries := []trial.PatientQuery{
		{},
		{Condition: "metastatic EGFR+ NSCLC previously treated with osimertinib; ECOG 1"},
		{Condition: "breast cancer", Preferences: "immunotherapy only; open near Boston MA"},
	}

	for _, q := range queries {
		records, err := catalog.FindTrials(context.Background(), q)
		require.NoError(t, err)
		require.Len(t, records, 4)

		ids := make([]string, 0, len(records))
		scores := make([]float64, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.NCTID)
			require.NotNil(t, r.Score)
			scores = append(scores, *r.Score)
			assert.Equal(t, trial.RegistryLink(r.NCTID), r.Link)
		}
		assert.Equal(t, []string{"NCT05321044", "NCT04711856", "NCT05190010", "NCT05900123"}, ids)
		assert.Equal(t, []float64{0.86, 0.73, 0.69, 0.64}, scores)
		assert.Equal(t, 86, trial.ProgressValue(*records[0].Score))
	}
}

func TestCatalogRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCatalog().FindTrials(ctx, trial.PatientQuery{})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewRiskModel().PredictRisk(ctx, trial.TrialAttributes{})
	assert.ErrorIs(t, err, context.Canceled)
}

package ports

import (
	"context"

	"trialdesk/domain/trial"
)

// RiskPredictor estimates the low-accrual risk of a trial design as a
// percentage in [0,100]. Suggestions already applied to the design are carried
// in attrs.AppliedSuggestions.
type RiskPredictor interface {
	PredictRisk(ctx context.Context, attrs trial.TrialAttributes) (int, error)
}

// SuggestionSource proposes design changes expected to improve enrollment
type SuggestionSource interface {
	Suggest(ctx context.Context, attrs trial.TrialAttributes) ([]string, error)
}

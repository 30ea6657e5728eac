package ports

import (
	"context"

	"trialdesk/domain/trial"
)

// TrialFinder matches a patient description against trial records and returns
// them ranked, best match first.
type TrialFinder interface {
	FindTrials(ctx context.Context, query trial.PatientQuery) ([]trial.TrialRecord, error)
}

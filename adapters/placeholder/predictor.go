// Package placeholder provides the hardcoded risk model and trial catalog the
// demo runs on. Both satisfy the ports a real model and search engine will
// implement later.
package placeholder

import (
	"context"

	"trialdesk/domain/trial"
)

const (
	// BaselineRisk is the risk reported for any submitted design
	BaselineRisk = 76
	// ImprovedRisk is the risk reported once the suggestions are applied
	ImprovedRisk = 42
)

// DesignSuggestions are offered for every design regardless of its content
var DesignSuggestions = []string{
	"Use RECIST or imaging-based response instead of requiring pathologic confirmation, which simplifies the primary endpoint and aligns with oncology standards.",
	"Make the 6-week biopsy optional, allow archival tissue at baseline, and substitute ctDNA or blood biomarkers to reduce invasiveness and patient burden.",
	"Broaden eligibility by shortening the secondary malignancy exclusion window to 2 years and allowing indolent cancers without affecting melanoma outcomes.",
	"Relax lab cutoffs (ANC ≥1.0, platelets ≥75, AST/ALT ≤3× ULN, creatinine clearance ≥40) and allow transfusion support to include patients with borderline labs while maintaining safety.",
}

// RiskModel ignores its input and returns fixed risk values
type RiskModel struct {
	Baseline int
	Improved int
}

// NewRiskModel returns the model with the demo constants
func NewRiskModel() *RiskModel {
	return &RiskModel{Baseline: BaselineRisk, Improved: ImprovedRisk}
}

// PredictRisk returns Baseline for an untouched design and Improved once any
// suggestion has been applied
func (m *RiskModel) PredictRisk(ctx context.Context, attrs trial.TrialAttributes) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(attrs.AppliedSuggestions) > 0 {
		return m.Improved, nil
	}
	return m.Baseline, nil
}

// Suggest returns the fixed suggestion list
func (m *RiskModel) Suggest(ctx context.Context, _ trial.TrialAttributes) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]string(nil), DesignSuggestions...), nil
}

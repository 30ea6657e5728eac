package placeholder

import (
	"context"

	"trialdesk/domain/trial"
)

// Catalog returns the same trial records for every query, in catalog order
type Catalog struct{}

// NewCatalog creates the mock trial catalog
func NewCatalog() *Catalog {
	return &Catalog{}
}

// FindTrials ignores the query. No filtering or ranking takes place.
func (c *Catalog) FindTrials(ctx context.Context, _ trial.PatientQuery) ([]trial.TrialRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return mockTrials(), nil
}

// mockTrials builds a fresh slice on every call so callers never share pointers
func mockTrials() []trial.TrialRecord {
	return []trial.TrialRecord{
		{
			NCTID:      "NCT05321044",
			Title:      "Pembrolizumab With Chemotherapy for Advanced NSCLC",
			Summary:    "Phase III, open-label study evaluating pembrolizumab + platinum doublet in metastatic NSCLC after progression on prior targeted therapy.",
			Link:       trial.RegistryLink("NCT05321044"),
			Phase:      "III",
			Randomized: pointer(true),
			Sites:      "Boston, MA",
			Score:      pointer(0.86),
			Rationale:  "Matches EGFR+ NSCLC post-TKI; ECOG 0–1; Boston site within 10 miles.",
		},
		{
			NCTID:      "NCT04711856",
			Title:      "Osimertinib and Bevacizumab in EGFR-Mutant Lung Cancer",
			Summary:    "Phase II, single-arm trial for EGFR+ NSCLC exploring VEGF inhibition with third-gen EGFR TKI; endpoints include PFS and intracranial response.",
			Link:       trial.RegistryLink("NCT04711856"),
			Phase:      "II",
			Randomized: pointer(false),
			Sites:      "Providence, RI",
			Score:      pointer(0.73),
			Rationale:  "EGFR-mutant cohort; non-randomized as requested; accepts prior osimertinib.",
		},
		{
			NCTID:      "NCT05190010",
			Title:      "Atezolizumab for PD-L1 High NSCLC (Biomarker-Driven)",
			Summary:    "Phase II biomarker-selected cohort assessing atezolizumab in PD-L1 ≥50%; allows prior TKI; streamlined exclusions to broaden access.",
			Link:       trial.RegistryLink("NCT05190010"),
			Phase:      "II",
			Randomized: pointer(false),
			Sites:      "Boston + Telehealth",
			Score:      pointer(0.69),
			Rationale:  "PD-L1 ≥50% aligns with profile; flexible visit windows; nearby site.",
		},
		{
			NCTID:      "NCT05900123",
			Title:      "Citywide Immunotherapy Access Study (Multi-Site)",
			Summary:    "Pragmatic, multi-center study offering checkpoint inhibitor therapy with flexible visit windows; includes Boston and Providence sites with telehealth support.",
			Link:       trial.RegistryLink("NCT05900123"),
			Phase:      "II/III",
			Randomized: pointer(true),
			Sites:      "Boston & Providence",
			Score:      pointer(0.64),
			Rationale:  "Immunotherapy preference matched; multiple local sites; broad eligibility.",
		},
	}
}

// pointer returns a pointer to the given value
func pointer[T any](v T) *T {
	return &v
}

// Package trial holds the display records shared by the risk and finder flows.
package trial

import (
	"math"

	"github.com/montanaflynn/stats"
)

// RegistryBaseURL is the public registry prefix used for outbound study links
const RegistryBaseURL = "https://clinicaltrials.gov/study/"

// TrialRecord is one finder result card
type TrialRecord struct {
	NCTID      string   `json:"nct_id"`
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Link       string   `json:"link"`
	Phase      string   `json:"phase,omitempty"`
	Randomized *bool    `json:"randomized,omitempty"`
	Sites      string   `json:"sites,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	Rationale  string   `json:"rationale,omitempty"`
}

// TrialAttributes are the free-text design fields of the risk form.
// None of them are validated; empty strings are accepted.
type TrialAttributes struct {
	Title              string   `json:"title"`
	Eligibility        string   `json:"eligibility"`
	Description        string   `json:"description"`
	AppliedSuggestions []string `json:"applied_suggestions,omitempty"`
}

// PatientQuery is the free-text input of the finder form
type PatientQuery struct {
	Condition   string `json:"condition"`
	Preferences string `json:"preferences"`
}

// RegistryLink builds the public registry URL for an NCT ID
func RegistryLink(nctID string) string {
	return RegistryBaseURL + nctID
}

// ProgressValue converts a match score in [0,1] to a progress percentage,
// clamp(round(score*100), 0, 100).
func ProgressValue(score float64) int {
	rounded, err := stats.Round(score*100, 0)
	if err != nil {
		return 0
	}
	return int(math.Max(0, math.Min(100, rounded)))
}

// ScoreSummary aggregates the match scores of a result list
type ScoreSummary struct {
	Count  int     `json:"count"`
	Scored int     `json:"scored"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// SummarizeScores computes mean/median/max over the records that carry a score
func SummarizeScores(records []TrialRecord) ScoreSummary {
	summary := ScoreSummary{Count: len(records)}

	scores := make(stats.Float64Data, 0, len(records))
	for _, r := range records {
		if r.Score != nil {
			scores = append(scores, *r.Score)
		}
	}
	summary.Scored = len(scores)
	if len(scores) == 0 {
		return summary
	}

	summary.Mean, _ = scores.Mean()
	summary.Median, _ = scores.Median()
	summary.Max, _ = scores.Max()
	return summary
}

package services

import (
	"strconv"

	"trialdesk/domain/trial"
)

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func percentLabel(v int) string {
	return strconv.Itoa(v) + "%"
}

// labelX centers the label in a bar of width v, keeping short bars readable
func labelX(v int) float64 {
	if v < 8 {
		return float64(v) + 4
	}
	return float64(v) / 2
}

func formatCount(n int) string {
	return strconv.Itoa(n)
}

// scoreLine summarizes the match scores shown above the cards
func scoreLine(summary trial.ScoreSummary) string {
	if summary.Scored == 0 {
		return ""
	}
	return "Match scores: top " + percentLabel(trial.ProgressValue(summary.Max)) +
		" • median " + percentLabel(trial.ProgressValue(summary.Median)) +
		" • mean " + percentLabel(trial.ProgressValue(summary.Mean))
}

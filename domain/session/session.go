// Package session models one browser session of the prototype as an explicit
// finite-state object. Pages, the risk flow and the finder flow all change
// only through Apply.
package session

import (
	"time"

	"trialdesk/domain/core"
	"trialdesk/domain/trial"
)

// Page is the process-wide page selector of a session
type Page string

const (
	PageLanding Page = "landing"
	PageRisk    Page = "risk"
	PageFinder  Page = "finder"
)

// TaskKind identifies which simulated long-running step a task stands for
type TaskKind string

const (
	TaskRiskEstimate TaskKind = "risk_estimate"
	TaskRiskApply    TaskKind = "risk_apply"
	TaskFinderSearch TaskKind = "finder_search"
)

// TaskStatus is the lifecycle of a background task
type TaskStatus string

const (
	TaskIdle    TaskStatus = "idle"
	TaskPending TaskStatus = "pending"
	TaskSuccess TaskStatus = "success"
	TaskFailure TaskStatus = "failure"
)

// Task tracks the one in-flight query a flow may have
type Task struct {
	ID         core.TaskID `json:"id,omitempty"`
	Kind       TaskKind    `json:"kind,omitempty"`
	Status     TaskStatus  `json:"status"`
	Stage      string      `json:"stage,omitempty"`
	Error      string      `json:"error,omitempty"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// IsPending reports whether the task is still running
func (t Task) IsPending() bool {
	return t.Status == TaskPending
}

// RiskState is the trial design flow
type RiskState struct {
	Risk         *int                  `json:"risk"`
	Submitted    bool                  `json:"submitted"`
	Applied      bool                  `json:"applied"`
	BaselineRisk int                   `json:"baseline_risk"`
	Attributes   trial.TrialAttributes `json:"attributes"`
	Suggestions  []string              `json:"suggestions,omitempty"`
	Task         Task                  `json:"task"`
}

// RiskValue returns the current risk or 0 when no prediction exists yet
func (r RiskState) RiskValue() int {
	if r.Risk == nil {
		return 0
	}
	return *r.Risk
}

// FinderState is the patient trial finder flow
type FinderState struct {
	Query     trial.PatientQuery  `json:"query"`
	Results   []trial.TrialRecord `json:"results,omitempty"`
	Submitted bool                `json:"submitted"`
	Task      Task                `json:"task"`
}

// Session is one browser session
type Session struct {
	ID        core.SessionID `json:"id"`
	Page      Page           `json:"page"`
	Risk      RiskState      `json:"risk"`
	Finder    FinderState    `json:"finder"`
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// New creates a session on the landing page
func New(id core.SessionID) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Page:      PageLanding,
		Risk:      RiskState{Task: Task{Status: TaskIdle}},
		Finder:    FinderState{Task: Task{Status: TaskIdle}},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsLanding reports whether no flow has been selected yet
func (s *Session) IsLanding() bool {
	return s.Page == "" || s.Page == PageLanding
}

// Clone returns a copy that shares no mutable state with s
func (s *Session) Clone() *Session {
	c := *s
	if s.Risk.Risk != nil {
		risk := *s.Risk.Risk
		c.Risk.Risk = &risk
	}
	c.Risk.Attributes.AppliedSuggestions = cloneStrings(s.Risk.Attributes.AppliedSuggestions)
	c.Risk.Suggestions = cloneStrings(s.Risk.Suggestions)
	c.Risk.Task = s.Risk.Task.clone()
	c.Finder.Task = s.Finder.Task.clone()
	if s.Finder.Results != nil {
		// Records are never mutated after creation, a new backing array is enough.
		c.Finder.Results = append([]trial.TrialRecord(nil), s.Finder.Results...)
	}
	return &c
}

func (t Task) clone() Task {
	c := t
	if t.StartedAt != nil {
		started := *t.StartedAt
		c.StartedAt = &started
	}
	if t.FinishedAt != nil {
		finished := *t.FinishedAt
		c.FinishedAt = &finished
	}
	return c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

package session

import (
	"fmt"
	"time"

	"trialdesk/domain/core"
	"trialdesk/domain/trial"
)

// Message is a user intent or task outcome that drives a transition
type Message interface {
	apply(s *Session, now time.Time) error
}

// GoToRisk is the "Go to Trial Design" landing button
type GoToRisk struct{}

// GoToFinder is the "Go to Trial Search" landing button
type GoToFinder struct{}

// SubmitRisk is the risk form Submit button
type SubmitRisk struct {
	TaskID     core.TaskID
	Attributes trial.TrialAttributes
}

// StageChanged reports that a pending task moved to the named stage
type StageChanged struct {
	TaskID core.TaskID
	Stage  string
}

// RiskEstimated completes a SubmitRisk task
type RiskEstimated struct {
	TaskID      core.TaskID
	Risk        int
	Suggestions []string
}

// ApplySuggestions is the "Apply all" button
type ApplySuggestions struct {
	TaskID core.TaskID
}

// UndoSuggestions is the "Undo suggestions" button. It performs the same
// transition as ApplySuggestions.
type UndoSuggestions struct {
	TaskID core.TaskID
}

// SuggestionsApplied completes an ApplySuggestions or UndoSuggestions task
type SuggestionsApplied struct {
	TaskID       core.TaskID
	BaselineRisk int
	Risk         int
}

// SubmitFinder is the finder form Submit button
type SubmitFinder struct {
	TaskID core.TaskID
	Query  trial.PatientQuery
}

// TrialsFound completes a SubmitFinder task
type TrialsFound struct {
	TaskID  core.TaskID
	Records []trial.TrialRecord
}

// TaskFailed marks the task with the given ID as failed
type TaskFailed struct {
	TaskID core.TaskID
	Err    string
}

// Apply runs one transition. On error the session is left unchanged.
func (s *Session) Apply(msg Message) error {
	if msg == nil {
		return core.ErrUnknownIntent
	}

	next := s.Clone()
	now := time.Now()
	if err := msg.apply(next, now); err != nil {
		return err
	}
	next.Version = s.Version + 1
	next.UpdatedAt = now
	*s = *next
	return nil
}

func (GoToRisk) apply(s *Session, _ time.Time) error {
	if s.IsLanding() {
		s.Page = PageRisk
	}
	return nil
}

func (GoToFinder) apply(s *Session, _ time.Time) error {
	if s.IsLanding() {
		s.Page = PageFinder
	}
	return nil
}

func (m SubmitRisk) apply(s *Session, now time.Time) error {
	if s.Risk.Task.IsPending() {
		return core.ErrTaskPending
	}
	s.Risk.Submitted = true
	s.Risk.Attributes = m.Attributes
	s.Risk.Task = startTask(m.TaskID, TaskRiskEstimate, now)
	return nil
}

func (m StageChanged) apply(s *Session, _ time.Time) error {
	task, err := s.pendingTask(m.TaskID)
	if err != nil {
		return err
	}
	task.Stage = m.Stage
	return nil
}

func (m RiskEstimated) apply(s *Session, now time.Time) error {
	if err := s.expectTask(&s.Risk.Task, m.TaskID); err != nil {
		return err
	}
	risk := m.Risk
	s.Risk.Risk = &risk
	s.Risk.Applied = false
	s.Risk.Suggestions = cloneStrings(m.Suggestions)
	finishTask(&s.Risk.Task, TaskSuccess, "", now)
	return nil
}

func (m ApplySuggestions) apply(s *Session, now time.Time) error {
	return s.beginApply(m.TaskID, now)
}

func (m UndoSuggestions) apply(s *Session, now time.Time) error {
	return s.beginApply(m.TaskID, now)
}

func (s *Session) beginApply(taskID core.TaskID, now time.Time) error {
	if !s.Risk.Submitted || s.Risk.Risk == nil {
		return core.ErrNotSubmitted
	}
	if s.Risk.Task.IsPending() {
		return core.ErrTaskPending
	}
	s.Risk.Task = startTask(taskID, TaskRiskApply, now)
	return nil
}

func (m SuggestionsApplied) apply(s *Session, now time.Time) error {
	if err := s.expectTask(&s.Risk.Task, m.TaskID); err != nil {
		return err
	}
	risk := m.Risk
	s.Risk.Risk = &risk
	s.Risk.BaselineRisk = m.BaselineRisk
	s.Risk.Applied = true
	s.Risk.Attributes.AppliedSuggestions = cloneStrings(s.Risk.Suggestions)
	finishTask(&s.Risk.Task, TaskSuccess, "", now)
	return nil
}

func (m SubmitFinder) apply(s *Session, now time.Time) error {
	if s.Finder.Task.IsPending() {
		return core.ErrTaskPending
	}
	s.Finder.Query = m.Query
	s.Finder.Task = startTask(m.TaskID, TaskFinderSearch, now)
	return nil
}

func (m TrialsFound) apply(s *Session, now time.Time) error {
	if err := s.expectTask(&s.Finder.Task, m.TaskID); err != nil {
		return err
	}
	s.Finder.Results = append([]trial.TrialRecord(nil), m.Records...)
	s.Finder.Submitted = true
	finishTask(&s.Finder.Task, TaskSuccess, "", now)
	return nil
}

func (m TaskFailed) apply(s *Session, now time.Time) error {
	task, err := s.pendingTask(m.TaskID)
	if err != nil {
		return err
	}
	finishTask(task, TaskFailure, m.Err, now)
	return nil
}

// pendingTask finds the pending task with the given ID in either flow
func (s *Session) pendingTask(id core.TaskID) (*Task, error) {
	for _, task := range []*Task{&s.Risk.Task, &s.Finder.Task} {
		if task.ID == id {
			if !task.IsPending() {
				return nil, fmt.Errorf("%w: task %s is %s", core.ErrStaleTask, id, task.Status)
			}
			return task, nil
		}
	}
	return nil, fmt.Errorf("%w: task %s", core.ErrStaleTask, id)
}

func (s *Session) expectTask(task *Task, id core.TaskID) error {
	if task.ID != id || !task.IsPending() {
		return fmt.Errorf("%w: task %s", core.ErrStaleTask, id)
	}
	return nil
}

func startTask(id core.TaskID, kind TaskKind, now time.Time) Task {
	started := now
	return Task{
		ID:        id,
		Kind:      kind,
		Status:    TaskPending,
		StartedAt: &started,
	}
}

func finishTask(task *Task, status TaskStatus, errMsg string, now time.Time) {
	finished := now
	task.Status = status
	task.Stage = ""
	task.Error = errMsg
	task.FinishedAt = &finished
}

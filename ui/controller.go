package ui

import (
	"context"
	"errors"
	"io"
	"log"

	"trialdesk/adapters/excel"
	"trialdesk/app"
	"trialdesk/domain/core"
	"trialdesk/domain/session"
	"trialdesk/domain/trial"
	"trialdesk/internal/container"
	"trialdesk/internal/tasks"
)

// Controller holds the page logic shared by the gin server and the chi app.
// Submissions return immediately with the pending session; the flow itself
// runs on the task runner.
type Controller struct {
	sessions *app.SessionService
	risk     *app.RiskService
	finder   *app.FinderService
	stages   *app.StageRunner
	runner   *tasks.Runner
}

// NewController wires a controller from an initialized container
func NewController(c *container.Container) (*Controller, error) {
	if c == nil || c.SessionService == nil {
		return nil, errors.New("container services are not initialized")
	}
	return &Controller{
		sessions: c.SessionService,
		risk:     c.RiskService,
		finder:   c.FinderService,
		stages:   c.Stages,
		runner:   c.Tasks,
	}, nil
}

// Sessions exposes the session service for the session middleware
func (ctl *Controller) Sessions() *app.SessionService {
	return ctl.sessions
}

// Session returns the current state of the session
func (ctl *Controller) Session(ctx context.Context, id core.SessionID) (*session.Session, error) {
	return ctl.sessions.Get(ctx, id)
}

// Navigate applies a landing-page choice
func (ctl *Controller) Navigate(ctx context.Context, id core.SessionID, page session.Page) (*session.Session, error) {
	return ctl.sessions.Navigate(ctx, id, page)
}

// Reset replaces the session with a new landing session
func (ctl *Controller) Reset(ctx context.Context, id core.SessionID) (*session.Session, error) {
	return ctl.sessions.Reset(ctx, id)
}

// SubmitRisk starts a risk estimate. A submit while one is pending is a no-op.
func (ctl *Controller) SubmitRisk(ctx context.Context, id core.SessionID, attrs trial.TrialAttributes) (*session.Session, error) {
	sess, taskID, err := ctl.risk.BeginSubmit(ctx, id, attrs)
	if err != nil {
		return ctl.unchanged(ctx, id, err)
	}

	ctl.start(id, taskID, session.TaskRiskEstimate, func(ctx context.Context) error {
		_, err := ctl.risk.CompleteSubmit(ctx, id, taskID, attrs)
		return err
	})
	return sess, nil
}

// ApplySuggestions starts "Apply all", or "Undo suggestions" when undo is set
func (ctl *Controller) ApplySuggestions(ctx context.Context, id core.SessionID, undo bool) (*session.Session, error) {
	sess, taskID, err := ctl.risk.BeginApply(ctx, id, undo)
	if err != nil {
		return ctl.unchanged(ctx, id, err)
	}

	ctl.start(id, taskID, session.TaskRiskApply, func(ctx context.Context) error {
		_, err := ctl.risk.CompleteApply(ctx, id, taskID)
		return err
	})
	return sess, nil
}

// SubmitFinder starts a trial search. A submit while one is pending is a no-op.
func (ctl *Controller) SubmitFinder(ctx context.Context, id core.SessionID, query trial.PatientQuery) (*session.Session, error) {
	sess, taskID, err := ctl.finder.BeginSearch(ctx, id, query)
	if err != nil {
		return ctl.unchanged(ctx, id, err)
	}

	ctl.start(id, taskID, session.TaskFinderSearch, func(ctx context.Context) error {
		_, err := ctl.finder.CompleteSearch(ctx, id, taskID, query)
		return err
	})
	return sess, nil
}

// ExportResults writes the session's finder results as a workbook
func (ctl *Controller) ExportResults(ctx context.Context, id core.SessionID, w io.Writer) error {
	sess, err := ctl.sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	return excel.WriteResults(w, sess.Finder.Results)
}

// unchanged turns a rejected button press into a re-render of the current state
func (ctl *Controller) unchanged(ctx context.Context, id core.SessionID, cause error) (*session.Session, error) {
	if !core.IsTransitionError(cause) {
		return nil, cause
	}
	log.Printf("[Controller] Ignoring request for session %s: %v", id, cause)
	return ctl.sessions.Get(ctx, id)
}

func (ctl *Controller) start(id core.SessionID, taskID core.TaskID, kind session.TaskKind, run func(ctx context.Context) error) {
	err := ctl.runner.Go(tasks.Job{
		ID:   taskID.String(),
		Name: string(kind),
		Run: func(ctx context.Context) {
			if err := run(ctx); err != nil {
				log.Printf("[Controller] Task %s for session %s ended with error: %v", taskID, id, err)
			}
		},
	})
	if err != nil {
		_ = ctl.stages.Fail(context.Background(), id, taskID, kind, err)
	}
}

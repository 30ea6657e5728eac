package app

import (
	"context"
	"time"

	"trialdesk/domain/core"
	"trialdesk/domain/session"
	"trialdesk/internal"
	"trialdesk/ports"
)

// Stage is one simulated step of a long-running query
type Stage struct {
	Label string
	Delay time.Duration
}

// failureTimeout bounds the write that records a failed task after its
// context has already been cancelled
const failureTimeout = 5 * time.Second

// StageRunner walks a task through its stages, keeping the session's stage
// label and the event stream in sync
type StageRunner struct {
	sessions ports.SessionRepository
	events   ports.EventPublisher
	logger   *internal.Logger
}

// NewStageRunner creates a stage runner. A nil publisher disables events.
func NewStageRunner(sessions ports.SessionRepository, events ports.EventPublisher, logger *internal.Logger) *StageRunner {
	if events == nil {
		events = nopPublisher{}
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &StageRunner{
		sessions: sessions,
		events:   events,
		logger:   logger.With("Stages"),
	}
}

// Run enters each stage in order and waits out its delay
func (r *StageRunner) Run(ctx context.Context, id core.SessionID, taskID core.TaskID, kind session.TaskKind, stages []Stage) error {
	for i, stage := range stages {
		if _, err := r.sessions.Update(ctx, id, func(s *session.Session) error {
			return s.Apply(session.StageChanged{TaskID: taskID, Stage: stage.Label})
		}); err != nil {
			return err
		}

		r.publish(id, taskID, kind, ports.EventStage, stage.Label, float64(i)/float64(len(stages)), "")
		r.logger.Debug("Task %s entered stage %q", taskID, stage.Label)

		if err := sleep(ctx, stage.Delay); err != nil {
			return err
		}
	}
	return nil
}

// Finish applies the completion message and announces the task as done
func (r *StageRunner) Finish(ctx context.Context, id core.SessionID, taskID core.TaskID, kind session.TaskKind, msg session.Message) (*session.Session, error) {
	sess, err := r.sessions.Update(ctx, id, func(s *session.Session) error {
		return s.Apply(msg)
	})
	if err != nil {
		return nil, err
	}
	r.publish(id, taskID, kind, ports.EventDone, "", 1, "")
	return sess, nil
}

// Fail marks the task as failed and returns cause. A task that was already
// superseded, or whose session was reset, stays untouched.
func (r *StageRunner) Fail(ctx context.Context, id core.SessionID, taskID core.TaskID, kind session.TaskKind, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureTimeout)
	defer cancel()

	_, err := r.sessions.Update(ctx, id, func(s *session.Session) error {
		return s.Apply(session.TaskFailed{TaskID: taskID, Err: cause.Error()})
	})
	switch {
	case err == nil, core.IsTransitionError(err):
	case core.IsNotFoundError(err):
		r.logger.Debug("Session %s is gone, dropping failure of task %s", id, taskID)
	default:
		r.logger.Error("Failed to record failure of task %s: %v", taskID, err)
	}

	r.publish(id, taskID, kind, ports.EventFailed, "", 1, cause.Error())
	r.logger.Warn("Task %s (%s) failed: %v", taskID, kind, cause)
	return cause
}

func (r *StageRunner) publish(id core.SessionID, taskID core.TaskID, kind session.TaskKind, eventType, stage string, progress float64, errMsg string) {
	r.events.Publish(ports.StageEvent{
		SessionID: id.String(),
		TaskID:    taskID.String(),
		Kind:      string(kind),
		EventType: eventType,
		Stage:     stage,
		Progress:  progress,
		Error:     errMsg,
		Timestamp: time.Now(),
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(ports.StageEvent) {}

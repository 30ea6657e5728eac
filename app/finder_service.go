package app

import (
	"context"

	"trialdesk/domain/core"
	"trialdesk/domain/session"
	"trialdesk/domain/trial"
	"trialdesk/internal"
	"trialdesk/internal/errors"
	"trialdesk/ports"
)

// Stage labels shown while a trial search is running
const (
	StageFindingTrials = "Finding your trials..."
	StageRanking       = "Ranking and summarizing trials..."
)

// FinderService drives the patient trial finder flow
type FinderService struct {
	sessions ports.SessionRepository
	finder   ports.TrialFinder
	stages   *StageRunner
	timing   Timing
	logger   *internal.Logger
}

// NewFinderService creates a finder service
func NewFinderService(sessions ports.SessionRepository, finder ports.TrialFinder, stages *StageRunner, timing Timing, logger *internal.Logger) *FinderService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &FinderService{
		sessions: sessions,
		finder:   finder,
		stages:   stages,
		timing:   timing,
		logger:   logger.With("FinderService"),
	}
}

// BeginSearch records the patient description and starts a search task
func (s *FinderService) BeginSearch(ctx context.Context, id core.SessionID, query trial.PatientQuery) (*session.Session, core.TaskID, error) {
	taskID := core.NewTaskID()
	sess, err := s.sessions.Update(ctx, id, func(sess *session.Session) error {
		return sess.Apply(session.SubmitFinder{TaskID: taskID, Query: query})
	})
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("Session %s started trial search (task %s)", id, taskID)
	return sess, taskID, nil
}

// CompleteSearch runs the search stages and stores the matching trials
func (s *FinderService) CompleteSearch(ctx context.Context, id core.SessionID, taskID core.TaskID, query trial.PatientQuery) (*session.Session, error) {
	kind := session.TaskFinderSearch
	if err := s.stages.Run(ctx, id, taskID, kind, []Stage{
		{Label: StageFindingTrials, Delay: s.timing.StageDelay},
		{Label: StageRanking, Delay: s.timing.StageDelay},
	}); err != nil {
		return nil, s.stages.Fail(ctx, id, taskID, kind, err)
	}

	records, err := s.finder.FindTrials(ctx, query)
	if err != nil {
		return nil, s.stages.Fail(ctx, id, taskID, kind, errors.Wrap(errors.ExternalServiceError("trial search", err), "trial search failed"))
	}

	sess, err := s.stages.Finish(ctx, id, taskID, kind, session.TrialsFound{TaskID: taskID, Records: records})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Session %s found %d trials", id, len(records))
	return sess, nil
}

// Search runs the whole finder flow and blocks until it finishes
func (s *FinderService) Search(ctx context.Context, id core.SessionID, query trial.PatientQuery) (*session.Session, error) {
	_, taskID, err := s.BeginSearch(ctx, id, query)
	if err != nil {
		return nil, err
	}
	return s.CompleteSearch(ctx, id, taskID, query)
}

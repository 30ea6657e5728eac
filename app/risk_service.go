package app

import (
	"context"
	"time"

	"trialdesk/domain/core"
	"trialdesk/domain/session"
	"trialdesk/domain/trial"
	"trialdesk/internal"
	"trialdesk/internal/errors"
	"trialdesk/ports"
)

// Stage labels shown while the risk flow is running
const (
	StageFeatureEngineering = "Sending input to BigQuery for feature engineering..."
	StageInference          = "Running inference on BigQuery..."
	StageSuggestions        = "Getting suggestions to lower risk..."
	StageRerun              = "Re-running model with applied changes..."
)

// Timing holds the simulated latency of each stage
type Timing struct {
	StageDelay      time.Duration
	SuggestionDelay time.Duration
}

// RiskService drives the trial design flow: submit, apply all and undo
type RiskService struct {
	sessions    ports.SessionRepository
	predictor   ports.RiskPredictor
	suggestions ports.SuggestionSource
	stages      *StageRunner
	timing      Timing
	logger      *internal.Logger
}

// NewRiskService creates a risk service
func NewRiskService(sessions ports.SessionRepository, predictor ports.RiskPredictor, suggestions ports.SuggestionSource, stages *StageRunner, timing Timing, logger *internal.Logger) *RiskService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &RiskService{
		sessions:    sessions,
		predictor:   predictor,
		suggestions: suggestions,
		stages:      stages,
		timing:      timing,
		logger:      logger.With("RiskService"),
	}
}

// BeginSubmit records the submitted attributes and starts an estimate task
func (s *RiskService) BeginSubmit(ctx context.Context, id core.SessionID, attrs trial.TrialAttributes) (*session.Session, core.TaskID, error) {
	taskID := core.NewTaskID()
	sess, err := s.sessions.Update(ctx, id, func(sess *session.Session) error {
		return sess.Apply(session.SubmitRisk{TaskID: taskID, Attributes: attrs})
	})
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("Session %s submitted trial design %q (task %s)", id, attrs.Title, taskID)
	return sess, taskID, nil
}

// CompleteSubmit runs the estimate stages and stores the prediction
func (s *RiskService) CompleteSubmit(ctx context.Context, id core.SessionID, taskID core.TaskID, attrs trial.TrialAttributes) (*session.Session, error) {
	kind := session.TaskRiskEstimate
	if err := s.stages.Run(ctx, id, taskID, kind, []Stage{
		{Label: StageFeatureEngineering, Delay: s.timing.StageDelay},
		{Label: StageInference, Delay: s.timing.StageDelay},
	}); err != nil {
		return nil, s.stages.Fail(ctx, id, taskID, kind, err)
	}

	risk, err := s.predictor.PredictRisk(ctx, attrs)
	if err != nil {
		return nil, s.stages.Fail(ctx, id, taskID, kind, errors.Wrap(errors.ExternalServiceError("risk model", err), "risk prediction failed"))
	}

	if err := s.stages.Run(ctx, id, taskID, kind, []Stage{
		{Label: StageSuggestions, Delay: s.timing.SuggestionDelay},
	}); err != nil {
		return nil, s.stages.Fail(ctx, id, taskID, kind, err)
	}

	suggestions, err := s.suggestions.Suggest(ctx, attrs)
	if err != nil {
		return nil, s.stages.Fail(ctx, id, taskID, kind, errors.Wrap(errors.ExternalServiceError("suggestions", err), "suggestion lookup failed"))
	}

	sess, err := s.stages.Finish(ctx, id, taskID, kind, session.RiskEstimated{
		TaskID:      taskID,
		Risk:        risk,
		Suggestions: suggestions,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Session %s risk of low accrual: %d%%", id, risk)
	return sess, nil
}

// Submit runs the whole estimate flow and blocks until it finishes
func (s *RiskService) Submit(ctx context.Context, id core.SessionID, attrs trial.TrialAttributes) (*session.Session, error) {
	_, taskID, err := s.BeginSubmit(ctx, id, attrs)
	if err != nil {
		return nil, err
	}
	return s.CompleteSubmit(ctx, id, taskID, attrs)
}

// BeginApply starts a re-run with the suggestions applied. Undo starts the
// very same task.
func (s *RiskService) BeginApply(ctx context.Context, id core.SessionID, undo bool) (*session.Session, core.TaskID, error) {
	taskID := core.NewTaskID()
	var msg session.Message = session.ApplySuggestions{TaskID: taskID}
	if undo {
		msg = session.UndoSuggestions{TaskID: taskID}
	}

	sess, err := s.sessions.Update(ctx, id, func(sess *session.Session) error {
		return sess.Apply(msg)
	})
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("Session %s applying %d suggestions (undo=%v, task %s)", id, len(sess.Risk.Suggestions), undo, taskID)
	return sess, taskID, nil
}

// CompleteApply re-runs the model on the original and the improved design
func (s *RiskService) CompleteApply(ctx context.Context, id core.SessionID, taskID core.TaskID) (*session.Session, error) {
	kind := session.TaskRiskApply

	current, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, s.stages.Fail(ctx, id, taskID, kind, err)
	}

	if err := s.stages.Run(ctx, id, taskID, kind, []Stage{
		{Label: StageRerun, Delay: s.timing.StageDelay},
	}); err != nil {
		return nil, s.stages.Fail(ctx, id, taskID, kind, err)
	}

	original := current.Risk.Attributes
	original.AppliedSuggestions = nil
	baseline, err := s.predictor.PredictRisk(ctx, original)
	if err != nil {
		return nil, s.stages.Fail(ctx, id, taskID, kind, errors.Wrap(errors.ExternalServiceError("risk model", err), "baseline prediction failed"))
	}

	improved := original
	improved.AppliedSuggestions = append([]string(nil), current.Risk.Suggestions...)
	risk, err := s.predictor.PredictRisk(ctx, improved)
	if err != nil {
		return nil, s.stages.Fail(ctx, id, taskID, kind, errors.Wrap(errors.ExternalServiceError("risk model", err), "prediction with suggestions failed"))
	}

	sess, err := s.stages.Finish(ctx, id, taskID, kind, session.SuggestionsApplied{
		TaskID:       taskID,
		BaselineRisk: baseline,
		Risk:         risk,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Session %s risk after suggestions: %d%% (was %d%%)", id, risk, baseline)
	return sess, nil
}

// Apply runs "Apply all" and blocks until it finishes
func (s *RiskService) Apply(ctx context.Context, id core.SessionID) (*session.Session, error) {
	_, taskID, err := s.BeginApply(ctx, id, false)
	if err != nil {
		return nil, err
	}
	return s.CompleteApply(ctx, id, taskID)
}

// Undo runs "Undo suggestions" and blocks until it finishes
func (s *RiskService) Undo(ctx context.Context, id core.SessionID) (*session.Session, error) {
	_, taskID, err := s.BeginApply(ctx, id, true)
	if err != nil {
		return nil, err
	}
	return s.CompleteApply(ctx, id, taskID)
}

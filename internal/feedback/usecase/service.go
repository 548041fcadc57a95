package usecase

import (
	"context"
	"net/http"

	activitymodel "flashcards-client/internal/activity/domain/model"
	"flashcards-client/internal/feedback/domain/model"
	"flashcards-client/internal/session/domain/repository"
	apperrors "flashcards-client/internal/shared/errors"
	"flashcards-client/internal/shared/logger"

	"go.uber.org/zap"
)

const (
	msgSubmitted    = "Feedback submitted successfully!"
	msgSubmitFailed = "Failed to submit feedback"
)

// Requester performs authenticated calls against the flashcards API.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out interface{}) error
}

// ActivityLogger records a best-effort activity entry.
type ActivityLogger interface {
	Log(ctx context.Context, activityType, description, relatedID string)
}

// FeedbackServiceInterface is the feedback screen's view of the backend.
type FeedbackServiceInterface interface {
	Mine(ctx context.Context) ([]model.Feedback, error)
	Submit(ctx context.Context, req model.SubmitRequest) (*model.Feedback, error)
}

// FeedbackService sends and lists the user's feedback through the shared API client.
type FeedbackService struct {
	api        Requester
	notifier   repository.Notifier
	activities ActivityLogger
	log        logger.Logger
}

// NewFeedbackService creates a feedback service. notifier and activities may be nil.
func NewFeedbackService(api Requester, notifier repository.Notifier, activities ActivityLogger, log logger.Logger) *FeedbackService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &FeedbackService{
		api:        api,
		notifier:   notifier,
		activities: activities,
		log:        log.WithComponent("feedback"),
	}
}

// Mine lists the feedback the signed-in user has sent.
func (s *FeedbackService) Mine(ctx context.Context) ([]model.Feedback, error) {
	var entries []model.Feedback
	if err := s.api.Do(ctx, http.MethodGet, "/feedback/my", nil, &entries); err != nil {
		s.log.WithContext(ctx).With(zap.Error(err)).Error("Error fetching feedback")
		return nil, err
	}
	if entries == nil {
		entries = []model.Feedback{}
	}
	return entries, nil
}

// Submit sends feedback and reports the outcome as a notice. Field validation is the backend's.
func (s *FeedbackService) Submit(ctx context.Context, req model.SubmitRequest) (*model.Feedback, error) {
	var created model.Feedback
	if err := s.api.Do(ctx, http.MethodPost, "/feedback", req, &created); err != nil {
		s.log.WithContext(ctx).With(
			zap.Bool("unauthorized", apperrors.IsAuthentication(err)),
			zap.Error(err),
		).Error("Error submitting feedback")
		if s.notifier != nil {
			s.notifier.Error(ctx, msgSubmitFailed)
		}
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Success(ctx, msgSubmitted)
	}
	if s.activities != nil {
		s.activities.Log(ctx, activitymodel.TypeFeedbackSubmitted, "Submitted feedback: "+req.Subject, created.ID)
	}
	return &created, nil
}

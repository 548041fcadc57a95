package usecase

import (
	"context"
	"fmt"
	"net/http"

	"flashcards-client/internal/activity/domain/model"
	apperrors "flashcards-client/internal/shared/errors"
	"flashcards-client/internal/shared/logger"

	"go.uber.org/zap"
)

// DefaultRecentLimit is used when callers pass a non-positive limit.
const DefaultRecentLimit = 5

// Requester performs authenticated calls against the flashcards API.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out interface{}) error
}

// ActivityServiceInterface is the activity feed as seen by screens.
type ActivityServiceInterface interface {
	Recent(ctx context.Context, limit int) ([]model.Activity, error)
	Log(ctx context.Context, activityType, description, relatedID string)
}

// ActivityService reads and records user activity through the shared API client,
// so rejected credentials end the session like any other call.
type ActivityService struct {
	api Requester
	log logger.Logger
}

// NewActivityService creates a new activity service
func NewActivityService(api Requester, log logger.Logger) *ActivityService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ActivityService{api: api, log: log.WithComponent("activity")}
}

// Recent returns the newest activities of the signed-in user.
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	var activities []model.Activity
	if err := s.api.Do(ctx, http.MethodGet, fmt.Sprintf("/activities/recent?limit=%d", limit), nil, &activities); err != nil {
		s.log.WithContext(ctx).With(zap.Error(err)).Error("Error fetching recent activities")
		return nil, err
	}
	if activities == nil {
		activities = []model.Activity{}
	}
	return activities, nil
}

// Log records an activity. Failures are logged and never reach the caller.
func (s *ActivityService) Log(ctx context.Context, activityType, description, relatedID string) {
	if activityType == "" {
		s.log.Warn("Activity without type not logged")
		return
	}

	req := model.LogRequest{ActivityType: activityType, Description: description}
	if relatedID != "" {
		req.RelatedID = &relatedID
	}

	if err := s.api.Do(ctx, http.MethodPost, "/activities/log", req, nil); err != nil {
		s.log.WithContext(ctx).With(
			zap.String("activityType", activityType),
			zap.Bool("unauthorized", apperrors.IsAuthentication(err)),
			zap.Error(err),
		).Error("Error logging activity")
	}
}

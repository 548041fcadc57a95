package feedback

import (
	feedbackhttp "flashcards-client/internal/feedback/adapter/http"
	"flashcards-client/internal/feedback/usecase"
	"flashcards-client/internal/session/domain/repository"
	"flashcards-client/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// FeedbackModule represents the feedback screen module
type FeedbackModule struct {
	service *usecase.FeedbackService
	handler *feedbackhttp.FeedbackHTTPHandler
}

// NewFeedbackModule builds the module on the shared API client. Submissions are
// recorded through activities when it is non-nil.
func NewFeedbackModule(api usecase.Requester, notifier repository.Notifier, activities usecase.ActivityLogger, log logger.Logger) *FeedbackModule {
	service := usecase.NewFeedbackService(api, notifier, activities, log)
	return &FeedbackModule{
		service: service,
		handler: feedbackhttp.NewFeedbackHTTPHandler(service),
	}
}

// RegisterRoutes registers the feedback routes behind requireSession.
func (fm *FeedbackModule) RegisterRoutes(router fiber.Router, requireSession fiber.Handler) {
	fm.handler.RegisterRoutes(router, requireSession)
}

// GetService returns the feedback service for external access
func (fm *FeedbackModule) GetService() usecase.FeedbackServiceInterface {
	return fm.service
}

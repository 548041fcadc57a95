package activity

import (
	activityhttp "flashcards-client/internal/activity/adapter/http"
	"flashcards-client/internal/activity/usecase"
	"flashcards-client/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// ActivityModule represents the activity feed module
type ActivityModule struct {
	service *usecase.ActivityService
	handler *activityhttp.ActivityHTTPHandler
}

// NewActivityModule builds the module on the shared API client.
func NewActivityModule(api usecase.Requester, log logger.Logger) *ActivityModule {
	service := usecase.NewActivityService(api, log)
	return &ActivityModule{
		service: service,
		handler: activityhttp.NewActivityHTTPHandler(service),
	}
}

// RegisterRoutes registers the activity routes behind requireSession.
func (am *ActivityModule) RegisterRoutes(router fiber.Router, requireSession fiber.Handler) {
	am.handler.RegisterRoutes(router, requireSession)
}

// GetService returns the activity service for external access
func (am *ActivityModule) GetService() usecase.ActivityServiceInterface {
	return am.service
}

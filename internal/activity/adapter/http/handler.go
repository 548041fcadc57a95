package http

import (
	"flashcards-client/internal/activity/usecase"
	apperrors "flashcards-client/internal/shared/errors"

	"github.com/gofiber/fiber/v2"
)

// ActivityHTTPHandler exposes the activity feed on the local gateway.
type ActivityHTTPHandler struct {
	usecase usecase.ActivityServiceInterface
}

// NewActivityHTTPHandler creates a new activity HTTP handler
func NewActivityHTTPHandler(uc usecase.ActivityServiceInterface) *ActivityHTTPHandler {
	return &ActivityHTTPHandler{usecase: uc}
}

// RegisterRoutes mounts the activity routes behind requireSession.
func (h *ActivityHTTPHandler) RegisterRoutes(router fiber.Router, requireSession fiber.Handler) {
	activities := router.Group("/activities", requireSession)
	activities.Get("/recent", h.Recent)
	activities.Post("/", h.Log)
}

// Recent handles GET /activities/recent?limit=N
func (h *ActivityHTTPHandler) Recent(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", usecase.DefaultRecentLimit)

	activities, err := h.usecase.Recent(c.UserContext(), limit)
	if err != nil {
		status := apperrors.HTTPStatus(err)
		if status >= fiber.StatusInternalServerError {
			status = fiber.StatusBadGateway
		}
		return c.Status(status).JSON(fiber.Map{
			"error": "Could not load recent activities",
		})
	}
	return c.JSON(fiber.Map{"activities": activities})
}

// Log handles POST /activities. Recording is best effort, so the answer is always 202.
func (h *ActivityHTTPHandler) Log(c *fiber.Ctx) error {
	var req struct {
		ActivityType string `json:"activityType"`
		Description  string `json:"description"`
		RelatedID    string `json:"relatedId"`
	}
	if err := c.BodyParser(&req); err != nil || req.ActivityType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "activityType is required",
		})
	}

	h.usecase.Log(c.UserContext(), req.ActivityType, req.Description, req.RelatedID)
	return c.SendStatus(fiber.StatusAccepted)
}

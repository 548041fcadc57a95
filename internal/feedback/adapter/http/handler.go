package http

import (
	"flashcards-client/internal/feedback/domain/model"
	"flashcards-client/internal/feedback/usecase"
	apperrors "flashcards-client/internal/shared/errors"

	"github.com/gofiber/fiber/v2"
)

// FeedbackHTTPHandler exposes the feedback screen on the local gateway.
type FeedbackHTTPHandler struct {
	usecase usecase.FeedbackServiceInterface
}

// NewFeedbackHTTPHandler creates a new feedback HTTP handler
func NewFeedbackHTTPHandler(uc usecase.FeedbackServiceInterface) *FeedbackHTTPHandler {
	return &FeedbackHTTPHandler{usecase: uc}
}

// RegisterRoutes mounts the feedback routes behind requireSession.
func (h *FeedbackHTTPHandler) RegisterRoutes(router fiber.Router, requireSession fiber.Handler) {
	feedback := router.Group("/feedback", requireSession)
	feedback.Get("/my", h.Mine)
	feedback.Post("/", h.Submit)
}

// Mine handles GET /feedback/my
func (h *FeedbackHTTPHandler) Mine(c *fiber.Ctx) error {
	entries, err := h.usecase.Mine(c.UserContext())
	if err != nil {
		return writeError(c, err, "Could not load feedback")
	}
	return c.JSON(fiber.Map{"feedback": entries})
}

// Submit handles POST /feedback
func (h *FeedbackHTTPHandler) Submit(c *fiber.Ctx) error {
	var req model.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	created, err := h.usecase.Submit(c.UserContext(), req)
	if err != nil {
		return writeError(c, err, "Failed to submit feedback")
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func writeError(c *fiber.Ctx, err error, fallback string) error {
	status := apperrors.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(fiber.Map{
		"error": apperrors.UserMessage(err, fallback),
	})
}

package http

import (
	"strings"
	"time"

	"flashcards-client/internal/session/usecase"
	"flashcards-client/internal/shared/logger"
	"flashcards-client/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

// SessionMiddleware guards gateway routes with the state of the local session.
type SessionMiddleware struct {
	manager usecase.SessionManagerInterface
	log     logger.Logger
}

// NewSessionMiddleware creates the middleware set for the gateway.
func NewSessionMiddleware(manager usecase.SessionManagerInterface, log logger.Logger) *SessionMiddleware {
	return &SessionMiddleware{manager: manager, log: log}
}

// Recover turns handler panics into 500 responses.
func (m *SessionMiddleware) Recover() fiber.Handler {
	return recover.New(recover.Config{EnableStackTrace: true})
}

// CORS allows the configured UI origins.
func (m *SessionMiddleware) CORS(allowedOrigins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID,X-Screen",
		MaxAge:       86400,
	})
}

// RequestID assigns X-Request-ID.
func (m *SessionMiddleware) RequestID() fiber.Handler {
	return requestid.New()
}

// RequestContext moves the request id and the calling screen into the user context,
// so API calls made on behalf of the request carry the same id.
func (m *SessionMiddleware) RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if id, ok := c.Locals("requestid").(string); ok && id != "" {
			ctx = utils.WithRequestID(ctx, id)
		}
		if screen := strings.TrimSpace(c.Get("X-Screen")); screen != "" {
			ctx = utils.WithScreen(ctx, screen)
		}
		c.SetUserContext(ctx)

		start := time.Now()
		err := c.Next()
		m.log.WithContext(ctx).With(
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
		).Debug("Gateway request")
		return err
	}
}

// RequireSession answers 503 while the session is being restored and 401 without a session.
func (m *SessionMiddleware) RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		view := m.manager.View()
		if view.Loading {
			c.Set(fiber.HeaderRetryAfter, "1")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Session is being restored",
			})
		}
		if !view.IsAuthenticated {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not signed in",
			})
		}

		c.Locals("user", view.User)
		c.SetUserContext(utils.WithUserID(c.UserContext(), view.User.ID))
		return c.Next()
	}
}

// AuthRateLimiter throttles login and registration attempts from local callers.
func (m *SessionMiddleware) AuthRateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many attempts, try again later",
			})
		},
	})
}

package http

import (
	"errors"
	"strings"
	"time"

	"flashcards-client/internal/session/domain/model"
	"flashcards-client/internal/session/usecase"
	apperrors "flashcards-client/internal/shared/errors"
	"flashcards-client/internal/shared/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Gateway exposes the local session to UI shells and scripts.
type Gateway struct {
	manager usecase.SessionManagerInterface
	gate    *usecase.ScreenGate
	screens *usecase.ScreenTracker
	hub     *EventHub
	log     logger.Logger
}

// NewGateway creates the gateway handlers.
func NewGateway(
	manager usecase.SessionManagerInterface,
	gate *usecase.ScreenGate,
	screens *usecase.ScreenTracker,
	hub *EventHub,
	log logger.Logger,
) *Gateway {
	return &Gateway{
		manager: manager,
		gate:    gate,
		screens: screens,
		hub:     hub,
		log:     log.WithComponent("gateway"),
	}
}

// NewApp builds a fiber app with the gateway routes and the shared middleware.
func NewApp(g *Gateway, mw *SessionMiddleware, allowedOrigins string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "flashcards-client",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	app.Use(mw.Recover())
	app.Use(mw.RequestID())
	app.Use(mw.CORS(allowedOrigins))
	app.Use(mw.RequestContext())

	g.RegisterRoutes(app, mw)
	return app
}

// RegisterRoutes sets up the session, screen, event and ops routes.
func (g *Gateway) RegisterRoutes(router fiber.Router, mw *SessionMiddleware) {
	router.Get("/health", g.Health)
	router.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	session := router.Group("/session")
	session.Get("/", g.GetSession)
	session.Post("/login", mw.AuthRateLimiter(), g.Login)
	session.Post("/register", mw.AuthRateLimiter(), g.Register)
	session.Post("/logout", g.Logout)
	session.Put("/profile", mw.RequireSession(), g.UpdateProfile)

	session.Use("/events", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	session.Get("/events", websocket.New(g.streamEvents))

	router.Get("/screens", g.ListScreens)
	router.Get("/screens/:screen", g.CheckScreen)
}

// Health reports liveness and the current session state.
func (g *Gateway) Health(c *fiber.Ctx) error {
	view := g.manager.View()
	return c.JSON(fiber.Map{
		"status":  "ok",
		"state":   view.State,
		"loading": view.Loading,
	})
}

// GetSession returns the session snapshot.
func (g *Gateway) GetSession(c *fiber.Ctx) error {
	return c.JSON(g.manager.View())
}

// Login signs in with {email, password}.
func (g *Gateway) Login(c *fiber.Ctx) error {
	var req model.Credentials
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := g.manager.Login(c.UserContext(), req.Identifier, req.Secret); err != nil {
		return g.writeError(c, err)
	}
	return c.JSON(g.manager.View())
}

// Register creates an account and signs it in.
func (g *Gateway) Register(c *fiber.Ctx) error {
	var req model.Registration
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := g.manager.Register(c.UserContext(), req); err != nil {
		return g.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(g.manager.View())
}

// Logout always succeeds.
func (g *Gateway) Logout(c *fiber.Ctx) error {
	g.manager.Logout(c.UserContext())
	return c.JSON(g.manager.View())
}

// UpdateProfile merges {name, username, avatarUrl} into the profile.
func (g *Gateway) UpdateProfile(c *fiber.Ctx) error {
	var req model.ProfileUpdate
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Nothing to update",
		})
	}

	if err := g.manager.UpdateProfile(c.UserContext(), req); err != nil {
		return g.writeError(c, err)
	}
	return c.JSON(g.manager.View())
}

// ListScreens returns every screen with its access rule.
func (g *Gateway) ListScreens(c *fiber.Ctx) error {
	screens := make([]fiber.Map, 0)
	for _, name := range g.gate.Screens() {
		rule, _ := g.gate.Rule(name)
		screens = append(screens, fiber.Map{"screen": name, "rule": rule})
	}
	return c.JSON(fiber.Map{"screens": screens})
}

// CheckScreen records the screen as current and answers whether it may be shown:
// 200 allowed, 401 login required, 403 forbidden, 503 while restoring.
func (g *Gateway) CheckScreen(c *fiber.Ctx) error {
	screen := strings.ToLower(c.Params("screen"))
	view := g.manager.View()

	decision, err := g.gate.Decide(screen, view)
	if err != nil {
		return c.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	g.screens.Set(screen)

	status := fiber.StatusOK
	switch decision {
	case usecase.DecisionPending:
		status = fiber.StatusServiceUnavailable
		c.Set(fiber.HeaderRetryAfter, "1")
	case usecase.DecisionLoginRequired:
		status = fiber.StatusUnauthorized
	case usecase.DecisionForbidden:
		status = fiber.StatusForbidden
	}

	return c.Status(status).JSON(fiber.Map{
		"screen":   screen,
		"decision": decision.String(),
		"session":  view,
	})
}

func (g *Gateway) writeError(c *fiber.Ctx, err error) error {
	status := apperrors.HTTPStatus(err)
	message := err.Error()

	var opErr *usecase.OperationError
	if errors.As(err, &opErr) {
		message = opErr.Message
	}
	if errors.Is(err, apperrors.ErrSessionSuperseded) {
		status = fiber.StatusConflict
	}
	if status >= fiber.StatusInternalServerError {
		// the backend is down or misbehaving; the local gateway itself is fine
		status = fiber.StatusBadGateway
	}

	g.log.WithContext(c.UserContext()).With(zap.Int("status", status), zap.Error(err)).Info("Session request failed")
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

// streamEvents sends a snapshot, then every state change and notice until the peer leaves.
func (g *Gateway) streamEvents(conn *websocket.Conn) {
	id, events := g.hub.Attach()
	defer g.hub.Detach(id)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snapshot := StreamMessage{Type: MessageTypeSnapshot, Data: g.manager.View(), Timestamp: time.Now()}
	if err := conn.WriteJSON(snapshot); err != nil {
		g.log.With(zap.String("subscriberID", id), zap.Error(err)).Warn("Failed to send snapshot")
		return
	}

	for {
		select {
		case <-done:
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				g.log.With(zap.String("subscriberID", id), zap.Error(err)).Debug("Event stream closed")
				return
			}
		}
	}
}

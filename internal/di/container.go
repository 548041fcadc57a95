package di

import (
	"context"
	"fmt"
	"sync"
	"time"

	"flashcards-client/internal/activity"
	"flashcards-client/internal/feedback"
	feedbackusecase "flashcards-client/internal/feedback/usecase"
	"flashcards-client/internal/session"
	"flashcards-client/internal/session/config"
	"flashcards-client/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// Container wires the client modules and owns their lifecycle.
type Container struct {
	mu sync.RWMutex
	// Module instances
	SessionModule  *session.SessionModule
	ActivityModule *activity.ActivityModule
	FeedbackModule *feedback.FeedbackModule
	// Configuration
	Config *config.Config
	// Logger
	Logger logger.Logger
}

// NewContainer creates an empty container.
func NewContainer(log logger.Logger) *Container {
	if log == nil {
		log = logger.NewLogger()
	}
	return &Container{Logger: log}
}

// InitializeSession builds the session module from cfg.
func (c *Container) InitializeSession(ctx context.Context, cfg *config.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	module, err := session.NewSessionModule(ctx, cfg, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create session module: %w", err)
	}
	c.Config = cfg
	c.SessionModule = module
	return nil
}

// InitializeActivity builds the activity module on the session's API client.
func (c *Container) InitializeActivity() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SessionModule == nil {
		return fmt.Errorf("session module must be initialized before activity module")
	}
	c.ActivityModule = activity.NewActivityModule(c.SessionModule.GetClient(), c.Logger)
	return nil
}

// InitializeFeedback builds the feedback module on the session's API client. Submissions
// are recorded as activities when the activity module is initialized first.
func (c *Container) InitializeFeedback() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SessionModule == nil {
		return fmt.Errorf("session module must be initialized before feedback module")
	}
	var activities feedbackusecase.ActivityLogger
	if c.ActivityModule != nil {
		activities = c.ActivityModule.GetService()
	}
	c.FeedbackModule = feedback.NewFeedbackModule(
		c.SessionModule.GetClient(),
		c.SessionModule.GetNotifier(),
		activities,
		c.Logger,
	)
	return nil
}

// GetSessionModule returns the session module
func (c *Container) GetSessionModule() *session.SessionModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SessionModule
}

// GetActivityModule returns the activity module
func (c *Container) GetActivityModule() *activity.ActivityModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ActivityModule
}

// GetFeedbackModule returns the feedback module
func (c *Container) GetFeedbackModule() *feedback.FeedbackModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.FeedbackModule
}

// BuildApp returns the gateway app with every initialized module's routes.
func (c *Container) BuildApp() (*fiber.App, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.SessionModule == nil {
		return nil, fmt.Errorf("session module is not initialized")
	}
	app := c.SessionModule.NewApp()
	requireSession := c.SessionModule.GetMiddleware().RequireSession()
	if c.ActivityModule != nil {
		c.ActivityModule.RegisterRoutes(app, requireSession)
	}
	if c.FeedbackModule != nil {
		c.FeedbackModule.RegisterRoutes(app, requireSession)
	}
	return app, nil
}

// HealthCheck checks the modules' external dependencies.
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.SessionModule != nil {
		if err := c.SessionModule.HealthCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the modules in reverse order of initialization.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.FeedbackModule = nil
	c.ActivityModule = nil
	if c.SessionModule != nil {
		if err := c.SessionModule.Stop(); err != nil {
			return fmt.Errorf("failed to stop session module: %w", err)
		}
		c.SessionModule = nil
	}
	c.Logger.Info("Container resources closed")
	return nil
}

// WaitForSession blocks until the restored session is known or the timeout passes.
func (c *Container) WaitForSession(ctx context.Context, timeout time.Duration) error {
	module := c.GetSessionModule()
	if module == nil {
		return fmt.Errorf("session module is not initialized")
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return module.GetManager().WaitReady(waitCtx)
}

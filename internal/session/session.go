package session

import (
	"context"
	"fmt"
	"time"

	"flashcards-client/internal/session/adapter/api"
	sessionhttp "flashcards-client/internal/session/adapter/http"
	"flashcards-client/internal/session/adapter/notify"
	"flashcards-client/internal/session/adapter/security"
	"flashcards-client/internal/session/adapter/storage"
	"flashcards-client/internal/session/config"
	"flashcards-client/internal/session/domain/repository"
	"flashcards-client/internal/session/usecase"
	"flashcards-client/internal/shared/eventbus"
	"flashcards-client/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// SessionModule represents the complete session module
type SessionModule struct {
	config     *config.Config
	log        logger.Logger
	storage    repository.Storage
	mongo      *mongo.Client
	bus        *eventbus.EventBus
	client     *api.Client
	manager    *usecase.Manager
	notifier   *notify.BusNotifier
	gate       *usecase.ScreenGate
	screens    *usecase.ScreenTracker
	hub        *sessionhttp.EventHub
	gateway    *sessionhttp.Gateway
	middleware *sessionhttp.SessionMiddleware
}

// NewSessionModule builds storage, event bus, API client, manager, screen gate and gateway.
func NewSessionModule(ctx context.Context, cfg *config.Config, log logger.Logger) (*SessionModule, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session configuration: %w", err)
	}
	if log == nil {
		log = logger.NewLogger()
	}

	m := &SessionModule{config: cfg, log: log.WithComponent("session")}

	store, err := m.openStorage(ctx)
	if err != nil {
		return nil, err
	}
	m.storage = store

	gate, err := usecase.NewScreenGate(cfg.ScreenRules, log)
	if err != nil {
		m.closeStorage()
		return nil, fmt.Errorf("failed to compile screen rules: %w", err)
	}
	m.gate = gate

	m.bus = eventbus.NewEventBus(log)
	m.screens = usecase.NewScreenTracker()

	var opts []api.Option
	if cfg.RateLimitRPS > 0 {
		opts = append(opts, api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}
	m.client = api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, m.bus, log, opts...)

	m.notifier = notify.NewBusNotifier(m.bus, log)
	m.manager = usecase.NewManager(usecase.ManagerDeps{
		Storage:     m.storage,
		API:         m.client,
		Credentials: m.client,
		Inspector:   security.NewClaimsInspector(),
		Notifier:    m.notifier,
		Bus:         m.bus,
		Screens:     m.screens,
		Keys:        usecase.StorageKeys{Token: cfg.TokenKey, User: cfg.UserKey},
		Logger:      log,
	})

	m.hub = sessionhttp.NewEventHub(m.bus, log)
	m.gateway = sessionhttp.NewGateway(m.manager, m.gate, m.screens, m.hub, log)
	m.middleware = sessionhttp.NewSessionMiddleware(m.manager, log)

	m.log.With(
		zap.String("apiBaseURL", cfg.APIBaseURL),
		zap.String("storage", cfg.StorageBackend),
	).Info("Session module initialized")
	return m, nil
}

func (m *SessionModule) openStorage(ctx context.Context) (repository.Storage, error) {
	cfg := m.config
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return storage.NewMemoryStorage(), nil

	case config.StorageFile:
		key, err := cfg.EncryptionKey()
		if err != nil {
			return nil, err
		}
		if key == nil {
			m.log.Warn("Session file is stored unencrypted; set STORAGE_ENCRYPTION_KEY to seal it")
		}
		return storage.NewFileStorage(cfg.StorageFilePath, key)

	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := storage.NewRedisStorage(client, cfg.RedisKeyPrefix)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return store, nil

	case config.StorageMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoDBURI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		store := storage.NewMongoStorage(client.Database(cfg.MongoDatabase), cfg.MongoCollection)
		if err := store.Ping(connectCtx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
		}
		m.mongo = client
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

// StartRestore restores the persisted session in the background. Screens stay
// pending until it finishes.
func (m *SessionModule) StartRestore(ctx context.Context) {
	go func() {
		if err := m.manager.Restore(ctx); err != nil {
			m.log.With(zap.Error(err)).Warn("Session restore skipped")
		}
	}()
}

// NewApp returns the gateway app with the session routes registered.
func (m *SessionModule) NewApp() *fiber.App {
	return sessionhttp.NewApp(m.gateway, m.middleware, m.config.AllowedOrigins)
}

// GetManager returns the session manager for external access
func (m *SessionModule) GetManager() usecase.SessionManagerInterface {
	return m.manager
}

// GetClient returns the shared API client. Calls made through it take part in the
// global authorization-denied handling.
func (m *SessionModule) GetClient() *api.Client {
	return m.client
}

// GetNotifier returns the notifier that feeds ui.notice events to subscribers.
func (m *SessionModule) GetNotifier() repository.Notifier {
	return m.notifier
}

// GetMiddleware returns the gateway middleware
func (m *SessionModule) GetMiddleware() *sessionhttp.SessionMiddleware {
	return m.middleware
}

// GetEventBus returns the module's event bus
func (m *SessionModule) GetEventBus() eventbus.EventBusInterface {
	return m.bus
}

// HealthCheck pings networked storage backends.
func (m *SessionModule) HealthCheck(ctx context.Context) error {
	if pinger, ok := m.storage.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(ctx); err != nil {
			return fmt.Errorf("session storage health check failed: %w", err)
		}
	}
	return nil
}

// Stop detaches subscribers and releases storage.
func (m *SessionModule) Stop() error {
	m.hub.Close()
	m.manager.Close()
	return m.closeStorage()
}

func (m *SessionModule) closeStorage() error {
	var err error
	if m.storage != nil {
		err = m.storage.Close()
	}
	if m.mongo != nil {
		if derr := m.mongo.Disconnect(context.Background()); derr != nil && err == nil {
			err = derr
		}
	}
	return err
}

// Package initializer assembles the infrastructure dependencies from
// configuration: logger, database, unit of work, event bus, cache,
// lock and the email sender.
package initializer

import (
	"fmt"

	"github.com/abensaid/lendify/infra"
	infracache "github.com/abensaid/lendify/infra/cache"
	infraeventbus "github.com/abensaid/lendify/infra/eventbus"
	infralock "github.com/abensaid/lendify/infra/lock"
	infraprovider "github.com/abensaid/lendify/infra/provider"
	infrarepository "github.com/abensaid/lendify/infra/repository"
	"github.com/abensaid/lendify/pkg/app"
	"github.com/abensaid/lendify/pkg/cache"
	"github.com/abensaid/lendify/pkg/config"
	"github.com/abensaid/lendify/pkg/eventbus"
	"github.com/abensaid/lendify/pkg/lock"
	"github.com/abensaid/lendify/pkg/provider"
)

// InitializeDependencies builds every infrastructure dependency the
// application needs per the configuration.
func InitializeDependencies(cfg *config.App) (*app.Deps, error) {
	deps := &app.Deps{}
	logger := setupLogger(cfg.Log)
	deps.Logger = logger

	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		return nil, err
	}
	if err := infrarepository.Migrate(db); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}
	deps.Uow = infrarepository.NewUoW(db)

	deps.EventBus, err = setupEventBus(cfg, deps)
	if err != nil {
		return nil, err
	}

	// Cache and per-transfer lock share the Redis instance when one is
	// configured; otherwise both fall back to in-process versions, which
	// is only correct for single-instance deployments.
	if cfg.Redis.URL != "" {
		redisCache, err := infracache.NewRedis(cfg.Redis.URL, cfg.Redis.KeyPrefix+"settings:")
		if err != nil {
			return nil, err
		}
		deps.Cache = redisCache

		redisLock, err := infralock.NewRedis(cfg.Redis.URL, cfg.Redis.KeyPrefix+"lock:")
		if err != nil {
			return nil, err
		}
		deps.Locker = redisLock
	} else {
		deps.Cache = cache.NewMemory()
		deps.Locker = lock.NewMemory()
	}

	deps.EmailSender = setupEmailSender(cfg, deps)
	return deps, nil
}

func setupEventBus(cfg *config.App, deps *app.Deps) (eventbus.Bus, error) {
	switch cfg.EventBus.Driver {
	case "redis":
		bus, err := infraeventbus.NewWithRedis(
			cfg.Redis.URL, cfg.EventBus.RedisStream, cfg.EventBus.RedisGroup, deps.Logger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis event bus: %w", err)
		}
		return bus, nil
	case "kafka":
		bus, err := infraeventbus.NewWithKafka(cfg.EventBus.KafkaBrokers, deps.Logger, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka event bus: %w", err)
		}
		return bus, nil
	case "", "memory":
		return infraeventbus.NewWithMemory(deps.Logger), nil
	default:
		return nil, fmt.Errorf("unknown event bus driver %q", cfg.EventBus.Driver)
	}
}

func setupEmailSender(cfg *config.App, deps *app.Deps) provider.EmailSender {
	if cfg.Email.SMTPAddr == "" {
		deps.Logger.Warn("no SMTP address configured, emails go to the log")
		return infraprovider.NewLogSender(deps.Logger)
	}
	return infraprovider.NewSMTPSender(cfg.Email, deps.Logger)
}

package config

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads the given .env files (first found wins) and materializes
// the App config from the environment. Missing files are not fatal;
// the process environment always takes precedence.
func Load(envFilePath ...string) (*App, error) {
	logger := slog.Default()

	loaded := false
	for _, path := range envFilePath {
		if err := godotenv.Load(path); err != nil {
			logger.Debug("environment file not found", "path", path)
			continue
		}
		logger.Info("environment loaded from file", "path", path)
		loaded = true
		break
	}
	if !loaded {
		if err := godotenv.Load(); err != nil {
			logger.Warn("no .env file found, using process environment")
		}
	}
	return loadFromEnv()
}

func loadFromEnv() (*App, error) {
	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}

	slog.Default().Info("app config loaded",
		"env", cfg.Env,
		"db", maskValue(cfg.DB.Url),
		"jwt_secret", maskValue(cfg.Auth.Jwt.Secret),
		"transfer_required_codes", cfg.Transfer.RequiredCodes,
		"transfer_fee_amount", cfg.Transfer.FeeAmount,
		"transfer_code_ttl", cfg.Transfer.CodeTTL,
		"transfer_completion_delay", cfg.Transfer.CompletionDelay,
		"transfer_expose_codes", cfg.Transfer.ExposeCodes,
		"worker_poll_interval", cfg.Worker.PollInterval,
		"event_bus_driver", cfg.EventBus.Driver,
		"rate_limit_max_requests", cfg.RateLimit.MaxRequests,
		"rate_limit_window", cfg.RateLimit.Window,
	)
	return &cfg, nil
}

func maskValue(key string) string {
	if len(key) <= 6 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-4:]
}

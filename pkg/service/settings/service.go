// Package settings reads and writes the admin settings store through a
// short-lived cache. The transfer workflow is configured here:
// operators tune the number of required validation codes and the
// per-code fee without a deploy.
package settings

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abensaid/lendify/pkg/cache"
	"github.com/abensaid/lendify/pkg/domain"
	"github.com/abensaid/lendify/pkg/repository"
)

// Setting keys consumed by the transfer orchestrator.
const (
	KeyRequiredCodes = "transfer_required_codes"
	KeyFeeAmount     = "transfer_fee_amount"
)

const cacheTTL = 30 * time.Second

// Service reads admin settings with typed accessors and defaults.
type Service struct {
	uow    repository.UnitOfWork
	cache  cache.Cache
	logger *slog.Logger
}

// New creates a settings service. cache may not be nil; pass
// cache.NewMemory() when Redis is not configured.
func New(uow repository.UnitOfWork, c cache.Cache, logger *slog.Logger) *Service {
	return &Service{uow: uow, cache: c, logger: logger.With("service", "settings")}
}

// Get returns the raw value for key, or domain.ErrSettingNotFound.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	if v, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		return v, nil
	}
	var value string
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.SettingsRepository()
		if err != nil {
			return err
		}
		value, err = repo.Get(ctx, key)
		return err
	})
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, key, value, cacheTTL); err != nil {
		s.logger.Warn("settings cache set failed", "key", key, "error", err)
	}
	return value, nil
}

// Set writes a setting and invalidates the cached value.
func (s *Service) Set(ctx context.Context, key, value string) error {
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.SettingsRepository()
		if err != nil {
			return err
		}
		return repo.Set(ctx, key, value)
	})
	if err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("settings cache invalidation failed", "key", key, "error", err)
	}
	return nil
}

// GetInt returns the setting parsed as int, or fallback when the key is
// absent or malformed.
func (s *Service) GetInt(ctx context.Context, key string, fallback int) int {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if err != domain.ErrSettingNotFound {
			s.logger.Warn("settings read failed", "key", key, "error", err)
		}
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.logger.Warn("setting is not an integer", "key", key, "value", raw)
		return fallback
	}
	return n
}

// GetDecimal returns the setting parsed as decimal, or fallback.
func (s *Service) GetDecimal(ctx context.Context, key string, fallback decimal.Decimal) decimal.Decimal {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if err != domain.ErrSettingNotFound {
			s.logger.Warn("settings read failed", "key", key, "error", err)
		}
		return fallback
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		s.logger.Warn("setting is not a decimal", "key", key, "value", raw)
		return fallback
	}
	return d
}

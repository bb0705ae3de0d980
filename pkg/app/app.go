// Package app wires the services together from their dependencies and
// registers the event bus subscriptions.
package app

import (
	"context"
	"log/slog"

	"github.com/abensaid/lendify/pkg/cache"
	"github.com/abensaid/lendify/pkg/config"
	"github.com/abensaid/lendify/pkg/domain/events"
	"github.com/abensaid/lendify/pkg/eventbus"
	"github.com/abensaid/lendify/pkg/lock"
	"github.com/abensaid/lendify/pkg/provider"
	"github.com/abensaid/lendify/pkg/repository"
	"github.com/abensaid/lendify/pkg/service/auth"
	"github.com/abensaid/lendify/pkg/service/settings"
	"github.com/abensaid/lendify/pkg/service/transfer"
	"github.com/abensaid/lendify/pkg/worker"
)

// Deps contains the infrastructure dependencies the services run on.
type Deps struct {
	Uow         repository.UnitOfWork
	EventBus    eventbus.Bus
	Cache       cache.Cache
	Locker      lock.Locker
	EmailSender provider.EmailSender
	Logger      *slog.Logger
}

// App holds the wired services.
type App struct {
	Deps   *Deps
	Config *config.App

	AuthService     *auth.Service
	SettingsService *settings.Service
	TransferService *transfer.Service
	Worker          *worker.Worker
}

// New wires the services and event subscriptions.
func New(deps *Deps, cfg *config.App) *App {
	a := &App{Deps: deps, Config: cfg}

	a.AuthService = auth.New(deps.Uow, cfg.Auth.Jwt, deps.Logger)
	a.SettingsService = settings.New(deps.Uow, deps.Cache, deps.Logger)
	a.TransferService = transfer.New(
		deps.Uow, deps.EventBus, a.SettingsService, deps.Locker, cfg.Transfer, deps.Logger,
	)
	a.Worker = worker.New(deps.Uow, a.TransferService, cfg.Worker, deps.Logger)

	a.setupEventBus()
	return a
}

// setupEventBus registers the asynchronous consumers. Today that is
// the email path for queued notifications.
func (a *App) setupEventBus() {
	logger := a.Deps.Logger.With("component", "eventbus")
	a.Deps.EventBus.Register(events.EventNotificationQueued, func(ctx context.Context, e events.Event) error {
		// The memory bus delivers the emitted value; distributed buses
		// decode into a pointer.
		var queued events.NotificationQueued
		switch v := e.(type) {
		case events.NotificationQueued:
			queued = v
		case *events.NotificationQueued:
			queued = *v
		default:
			return nil
		}
		if err := a.Deps.EmailSender.Send(ctx, queued.Email, queued.Title, queued.Body); err != nil {
			// Fire-and-forget: delivery failures never surface to the
			// request that queued the notification.
			logger.Error("email delivery failed",
				"notificationID", queued.NotificationID, "error", err)
		}
		return nil
	})
}

// Package container assembles the application's dependency graph.
package container

import (
	"math/rand"
	"time"

	"shramsetu/internal/app"
	"shramsetu/internal/attendance"
	"shramsetu/internal/config"
	"shramsetu/internal/db"
	"shramsetu/internal/handler"
	"shramsetu/internal/keylock"
	"shramsetu/internal/locationcache"
	"shramsetu/internal/notify"
	"shramsetu/internal/router"
	"shramsetu/internal/schedule"
	"shramsetu/internal/scheduler"
	"shramsetu/internal/services"
	"shramsetu/internal/store"
	"shramsetu/internal/types"

	"go.uber.org/dig"
	"gorm.io/gorm"
)

// BuildContainer registers every provider. Providers are lazy: nothing
// connects to the database or store until the first Invoke that needs it.
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	providers := []any{
		// Infrastructure
		config.NewManager,
		db.NewDB,
		store.NewStore,

		// Engine core
		keylock.NewKeyedMutex,
		newLocationCache,
		newGenerator,
		newNotifier,
		newExecutor,
		scheduler.NewVerificationScheduler,

		// Domain services
		attendance.NewService,
		services.NewSessionService,

		// HTTP surface
		handler.NewCommonHandler,
		handler.NewSessionHandler,
		handler.NewAttendanceHandler,
		handler.NewLocationHandler,
		handler.NewDashboardHandler,
		router.NewRouter,

		// Application
		app.NewApp,
	}

	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	return container, nil
}

func newLocationCache(s store.Store, configManager types.ConfigManager) *locationcache.Cache {
	ttl := time.Duration(configManager.GetVerificationConfig().LocationSampleTTLHours) * time.Hour
	return locationcache.NewCache(s, ttl)
}

func newGenerator() *schedule.Generator {
	return schedule.NewGenerator(rand.NewSource(time.Now().UnixNano()))
}

func newNotifier(s store.Store) notify.Notifier {
	return notify.NewStoreNotifier(s)
}

func newExecutor(database *gorm.DB, cache *locationcache.Cache, notifier notify.Notifier, s store.Store, locks *keylock.KeyedMutex, configManager types.ConfigManager) *scheduler.Executor {
	staleness := time.Duration(configManager.GetVerificationConfig().LocationStalenessMinutes) * time.Minute
	return scheduler.NewExecutor(database, cache, notifier, s, locks, staleness)
}

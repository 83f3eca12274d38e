package container

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"pantry-bot/config"
	app "pantry-bot/internal/application"
	"pantry-bot/internal/domain/port"
	"pantry-bot/internal/infrastructure/classifier"
	"pantry-bot/internal/infrastructure/storage"
	"pantry-bot/internal/infrastructure/vision"
)

type Container struct {
	UserService      *app.UserService
	ScanService      *app.ScanService
	InventoryService *app.InventoryService

	closers []io.Closer
}

// Settings задаёт параметры конвейера сканирования.
type Settings struct {
	Threshold         float64
	ClassifyTimeout   time.Duration // 0: значение по умолчанию
	LookupConcurrency int
	Logger            *slog.Logger
}

// New собирает сервисы из готовых адаптеров.
func New(
	userRepo port.UserRepository,
	store port.InventoryStore,
	cls port.Classifier,
	preprocessor port.ImagePreprocessor,
	s Settings,
) *Container {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	userService := app.NewUserService(userRepo)
	reconciler := app.NewReconciler(store, s.LookupConcurrency, logger)
	committer := app.NewCommitter(store, s.LookupConcurrency, logger)

	opts := []app.ScanOption{
		app.WithThreshold(s.Threshold),
		app.WithScanLogger(logger),
	}
	if s.ClassifyTimeout > 0 {
		opts = append(opts, app.WithClassifyTimeout(s.ClassifyTimeout))
	}
	if preprocessor != nil {
		opts = append(opts, app.WithPreprocessor(preprocessor))
	}

	return &Container{
		UserService:      userService,
		ScanService:      app.NewScanService(cls, reconciler, committer, opts...),
		InventoryService: app.NewInventoryService(store),
	}
}

// Build открывает хранилище по конфигурации и подключает HTTP-классификатор
// и подготовку изображений.
func Build(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, closer, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	cls := classifier.New(cfg.ClassifierURL, cfg.ClassifierAPIKey,
		classifier.WithHTTPClient(&http.Client{Timeout: cfg.ClassifyTimeout}),
		classifier.WithMaxImageBytes(cfg.MaxImageBytes),
		classifier.WithLogger(logger),
	)

	c := New(storage.NewMemoryUserRepository(), store, cls, vision.NewPreprocessor(cfg.PreprocessMaxSide), Settings{
		Threshold:         cfg.ConfidenceThreshold,
		ClassifyTimeout:   cfg.ClassifyTimeout,
		LookupConcurrency: cfg.LookupConcurrency,
		Logger:            logger,
	})
	if closer != nil {
		c.closers = append(c.closers, closer)
	}

	logger.Info("container built", "store", cfg.StoreDriver, "threshold", cfg.ConfidenceThreshold)
	return c, nil
}

// OpenStore открывает хранилище инвентаря. Для SQL возвращается и closer.
func OpenStore(cfg *config.Config) (port.InventoryStore, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return storage.NewMemoryInventory(), nil, nil
	case config.StoreSQLite:
		store, err := storage.OpenSQL(storage.DriverSQLite, cfg.StoreDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.StoreMySQL:
		store, err := storage.OpenSQL(storage.DriverMySQL, cfg.StoreDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownStoreDriver, cfg.StoreDriver)
	}
}

// Close закрывает открытые ресурсы.
func (c *Container) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

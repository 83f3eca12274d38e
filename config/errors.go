package config

import "errors"

// Ошибки конфигурации. Validate возвращает их как есть, проверять через errors.Is.
var (
	ErrConfigNotFound       = errors.New("configuration file not found")
	ErrInvalidThreshold     = errors.New("invalid confidence threshold: must be in [0, 1)")
	ErrInvalidTimeout       = errors.New("invalid classify timeout: must be positive")
	ErrInvalidMaxImageBytes = errors.New("invalid max image bytes: must be positive")
	ErrInvalidConcurrency   = errors.New("invalid lookup concurrency: must be positive")
	ErrInvalidMaxSide       = errors.New("invalid preprocess max side: must be positive")
	ErrUnknownStoreDriver   = errors.New("unknown store driver: use memory, sqlite or mysql")
	ErrNoStoreDSN           = errors.New("store DSN is required for sqlite and mysql")
	ErrNoClassifierURL      = errors.New("CLASSIFIER_URL is required")
	ErrNoTelegramToken      = errors.New("TELEGRAM_TOKEN is required")
)

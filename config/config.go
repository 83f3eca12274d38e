package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Значения по умолчанию
const (
	AppName = "pantry-bot"

	DefaultConfidenceThreshold = 0.7
	DefaultClassifyTimeout     = 30 * time.Second
	DefaultMaxImageBytes       = 10 << 20
	DefaultStoreDriver         = "sqlite"
	DefaultLookupConcurrency   = 8
	DefaultPreprocessMaxSide   = 1024
)

// Поддерживаемые хранилища
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMySQL  = "mysql"
)

type Config struct {
	TelegramToken       string        `yaml:"telegram_token"`
	ClassifierURL       string        `yaml:"classifier_url"`
	ClassifierAPIKey    string        `yaml:"classifier_api_key"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	ClassifyTimeout     time.Duration `yaml:"classify_timeout"`
	MaxImageBytes       int           `yaml:"max_image_bytes"`
	StoreDriver         string        `yaml:"store_driver"`
	StoreDSN            string        `yaml:"store_dsn"`
	LookupConcurrency   int           `yaml:"lookup_concurrency"`
	PreprocessMaxSide   int           `yaml:"preprocess_max_side"`
	Verbose             bool          `yaml:"verbose"`
}

// NewConfig возвращает конфигурацию со значениями по умолчанию
func NewConfig() *Config {
	return &Config{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		ClassifyTimeout:     DefaultClassifyTimeout,
		MaxImageBytes:       DefaultMaxImageBytes,
		StoreDriver:         DefaultStoreDriver,
		LookupConcurrency:   DefaultLookupConcurrency,
		PreprocessMaxSide:   DefaultPreprocessMaxSide,
	}
}

// DefaultConfigPath возвращает путь к файлу конфигурации в каталоге XDG
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// DefaultSQLitePath возвращает путь к базе SQLite в каталоге данных XDG
func DefaultSQLitePath() string {
	return filepath.Join(xdg.DataHome, AppName, "pantry.db")
}

// Load собирает конфигурацию: значения по умолчанию, затем YAML-файл, затем окружение.
// Файл берётся из PANTRY_CONFIG; если переменная не задана, отсутствие файла не ошибка.
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	return load(os.Getenv("PANTRY_CONFIG"))
}

// LoadFrom работает как Load, но файл задан явно. При пустом пути берётся файл XDG.
func LoadFrom(path string) (*Config, error) {
	_ = godotenv.Load()

	return load(path)
}

func load(path string) (*Config, error) {
	cfg := NewConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if err := cfg.LoadFile(path); err != nil {
		if explicit || !errors.Is(err, ErrConfigNotFound) {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.StoreDriver == StoreSQLite && cfg.StoreDSN == "" {
		cfg.StoreDSN = DefaultSQLitePath()
	}

	return cfg, nil
}

// LoadFile накладывает значения из YAML-файла поверх текущих
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // путь к конфигурации задаёт пользователь
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.TelegramToken, "TELEGRAM_TOKEN")
	setString(&c.ClassifierURL, "CLASSIFIER_URL")
	setString(&c.ClassifierAPIKey, "CLASSIFIER_API_KEY")
	setString(&c.StoreDriver, "STORE_DRIVER")
	setString(&c.StoreDSN, "STORE_DSN")

	if v, ok := os.LookupEnv("CONFIDENCE_THRESHOLD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse CONFIDENCE_THRESHOLD: %w", err)
		}
		c.ConfidenceThreshold = f
	}
	if v, ok := os.LookupEnv("CLASSIFY_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse CLASSIFY_TIMEOUT: %w", err)
		}
		c.ClassifyTimeout = d
	}
	if err := setInt(&c.MaxImageBytes, "MAX_IMAGE_BYTES"); err != nil {
		return err
	}
	if err := setInt(&c.LookupConcurrency, "LOOKUP_CONCURRENCY"); err != nil {
		return err
	}
	if err := setInt(&c.PreprocessMaxSide, "PREPROCESS_MAX_SIDE"); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("VERBOSE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse VERBOSE: %w", err)
		}
		c.Verbose = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = n
	return nil
}

// Validate проверяет общие настройки и возвращает первую найденную ошибку
func (c *Config) Validate() error {
	if math.IsNaN(c.ConfidenceThreshold) || c.ConfidenceThreshold < 0 || c.ConfidenceThreshold >= 1 {
		return ErrInvalidThreshold
	}
	if c.ClassifyTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxImageBytes <= 0 {
		return ErrInvalidMaxImageBytes
	}
	if c.LookupConcurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.PreprocessMaxSide <= 0 {
		return ErrInvalidMaxSide
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite, StoreMySQL:
		if c.StoreDSN == "" {
			return ErrNoStoreDSN
		}
	default:
		return ErrUnknownStoreDriver
	}
	return nil
}

// ValidateClassifier проверяет настройки, нужные для сканирования
func (c *Config) ValidateClassifier() error {
	if c.ClassifierURL == "" {
		return ErrNoClassifierURL
	}
	return nil
}

// ValidateBot проверяет настройки, нужные для запуска бота
func (c *Config) ValidateBot() error {
	if c.TelegramToken == "" {
		return ErrNoTelegramToken
	}
	return c.ValidateClassifier()
}

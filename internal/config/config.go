// config предоставляет структуру конфигурации клиентского ядра и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — корневая конфигурация клиентского ядра.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	API      APIConfig      `yaml:"api"`
	DeepLink DeepLinkConfig `yaml:"deeplink"`
	Redis    RedisConfig    `yaml:"redis"`
}

// APIConfig — параметры доступа к API маркетплейса.
type APIConfig struct {
	// BaseURL — базовый адрес API (например, https://api.storeapp.dev).
	BaseURL string `yaml:"base_url" env:"API_BASE_URL" env-required:"true"`
	// Timeout — общий таймаут сетевого вызова.
	Timeout time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"15s"`
	// FetchTimeout — укороченный таймаут для точечных GET-запросов.
	FetchTimeout time.Duration `yaml:"fetch_timeout" env:"API_FETCH_TIMEOUT" env-default:"5s"`
	// TokenExpiresIn — подсказка серверу о желаемом TTL access-токена,
	// передаётся как есть в теле запроса обновления пары.
	TokenExpiresIn string `yaml:"token_expires_in" env:"API_TOKEN_EXPIRES_IN" env-default:"30d"`
}

// DeepLinkConfig — параметры разбора и повторной доставки диплинков.
type DeepLinkConfig struct {
	// Scheme — единственная поддерживаемая схема URI.
	Scheme string `yaml:"scheme" env:"DEEPLINK_SCHEME" env-default:"storeapp"`
	// ReplayAttempts — число опросов готовности навигации при доставке.
	ReplayAttempts int `yaml:"replay_attempts" env:"DEEPLINK_REPLAY_ATTEMPTS" env-default:"2"`
	// ReplayInterval — пауза между опросами готовности.
	ReplayInterval time.Duration `yaml:"replay_interval" env:"DEEPLINK_REPLAY_INTERVAL" env-default:"1s"`
	// IntentTTL — возраст, после которого отложенный интент считается протухшим.
	IntentTTL time.Duration `yaml:"intent_ttl" env:"DEEPLINK_INTENT_TTL" env-default:"24h"`
}

// RedisConfig — настройки durable key-value хранилища.
type RedisConfig struct {
	// RedisURL — пусто, если хранилище не сконфигурировано (in-memory режим).
	RedisURL  string `yaml:"redis_url" env:"REDIS_URL"`
	KeyPrefix string `yaml:"key_prefix" env:"REDIS_KEY_PREFIX" env-default:"storeapp:kv:"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// ВАЖНО: после чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV.
	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		c, err := tryRead(path)
		if err != nil {
			return nil, err
		}

		return c, nil
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		c, err := tryRead(envPath)
		if err != nil {
			return nil, err
		}

		return c, nil
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}

// config — источник загрузки конфигурации для kelibe-gateway и CLI.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Виды хранилища пары токенов.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreCookie = "cookie"
)

type Config struct {
	Env        string           `yaml:"env" env:"ENV" env-default:"local"`
	HTTP       HTTPConfig       `yaml:"http"`
	Backend    BackendConfig    `yaml:"backend"`
	Timeouts   TimeoutConfig    `yaml:"timeouts"`
	TokenStore TokenStoreConfig `yaml:"token_store"`
	Cookies    CookieConfig     `yaml:"cookies"`
	Routes     RoutesConfig     `yaml:"routes"`
}

// HTTPConfig — публичный HTTP-сервер шлюза.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"3000"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// BackendConfig — REST-бэкенд, владеющий пользователями и матчингом.
type BackendConfig struct {
	BaseURL   string `yaml:"base_url"   env:"BACKEND_BASE_URL"   env-default:"http://localhost:8000/api/v1"`
	UserAgent string `yaml:"user_agent" env:"BACKEND_USER_AGENT" env-default:"kelibe-gateway"`
}

// TimeoutConfig — таймауты исходящих запросов.
type TimeoutConfig struct {
	Request time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"30s"`
	Refresh time.Duration `yaml:"refresh" env:"REFRESH_TIMEOUT" env-default:"10s"`
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"45s"`
}

// TokenStoreConfig — где живёт пара access/refresh.
type TokenStoreConfig struct {
	Kind        string        `yaml:"kind"         env:"TOKEN_STORE"          env-default:"file"`
	FilePath    string        `yaml:"file_path"    env:"TOKEN_STORE_FILE"     env-default:".kelibe/tokens.json"`
	RedisURL    string        `yaml:"redis_url"    env:"TOKEN_STORE_REDIS"    env-default:"redis://localhost:6379/0"`
	RedisPrefix string        `yaml:"redis_prefix" env:"TOKEN_STORE_PREFIX"   env-default:"kelibe:session:"`
	RedisKey    string        `yaml:"redis_key"    env:"TOKEN_STORE_KEY"      env-default:"default"`
	RedisTTL    time.Duration `yaml:"redis_ttl"    env:"TOKEN_STORE_REDIS_TTL" env-default:"720h"`
}

// CookieConfig — параметры cookie-хранилища шлюза.
type CookieConfig struct {
	AccessName  string        `yaml:"access_name"  env:"COOKIE_ACCESS_NAME"  env-default:"accessToken"`
	RefreshName string        `yaml:"refresh_name" env:"COOKIE_REFRESH_NAME" env-default:"refreshToken"`
	Domain      string        `yaml:"domain"       env:"COOKIE_DOMAIN"`
	Insecure    bool          `yaml:"insecure"     env:"COOKIE_INSECURE"`
	AccessTTL   time.Duration `yaml:"access_ttl"   env:"COOKIE_ACCESS_TTL"   env-default:"168h"`
	RefreshTTL  time.Duration `yaml:"refresh_ttl"  env:"COOKIE_REFRESH_TTL"  env-default:"720h"`
}

// RoutesConfig — навигация route guard.
type RoutesConfig struct {
	SignIn      string   `yaml:"sign_in"      env:"ROUTE_SIGN_IN"      env-default:"/auth/signin"`
	Landing     string   `yaml:"landing"      env:"ROUTE_LANDING"      env-default:"/profile"`
	Verify      string   `yaml:"verify"       env:"ROUTE_VERIFY"       env-default:"/auth/verify"`
	PublicPaths []string `yaml:"public_paths" env:"ROUTE_PUBLIC_PATHS" env-default:"/auth/signin,/auth/signup,/auth/verify"`
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

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

		return validate(&cfg)
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return validate(&cfg)
}

// validate отсекает заведомо неработоспособные комбинации.
func validate(cfg *Config) (*Config, error) {
	switch cfg.TokenStore.Kind {
	case StoreMemory, StoreFile, StoreRedis, StoreCookie:
	default:
		return nil, fmt.Errorf("unknown token store kind %q", cfg.TokenStore.Kind)
	}

	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("backend base url is empty")
	}

	return cfg, nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "LOCSETUP_"

type Config struct {
	Addr           string        `koanf:"addr" validate:"required"`
	BackendURL     string        `koanf:"backend_url" validate:"required,url"`
	CSRFToken      string        `koanf:"csrf_token"`
	CSRFPage       string        `koanf:"csrf_page"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout   time.Duration `koanf:"write_timeout" validate:"gt=0"`
	MaxUploadBytes int64         `koanf:"max_upload_bytes" validate:"gt=0"`
	LogLevel       string        `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogJSON        bool          `koanf:"log_json"`
}

func Default() Config {
	return Config{
		Addr:           ":3000",
		BackendURL:     "http://localhost:8080",
		CSRFPage:       "/",
		RequestTimeout: 8 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxUploadBytes: 20 << 20,
		LogLevel:       "info",
	}
}

// Load merges defaults with LOCSETUP_* environment variables, e.g. LOCSETUP_BACKEND_URL
// sets backend_url, then validates the result.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), strings.TrimSpace(value)
		},
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

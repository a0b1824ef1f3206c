package tool

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "config.yaml"
	DefaultPort       = 3000
	DefaultAssetRoot  = "clientside"
	DefaultQRSize     = 400
	Version           = "0.1.0"
)

// AppConfig is the on-disk configuration (config.yaml).
type AppConfig struct {
	Port         uint16        `yaml:"port"`
	AssetRoot    string        `yaml:"asset_root" validate:"required"`
	Protocol     string        `yaml:"protocol" validate:"required,oneof=http https"`
	QRSize       int           `yaml:"qr_size" validate:"gte=21,lte=4096"`
	DeviceTTL    time.Duration `yaml:"device_ttl" validate:"gte=0"`
	NotifyURL    string        `yaml:"notify_url" validate:"omitempty,url"`
	ProbeDevices bool          `yaml:"probe_devices"`
	AutoStart    bool          `yaml:"auto_start"`
}

// DefaultAppConfig is used when no config file exists.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Port:      DefaultPort,
		AssetRoot: DefaultAssetRoot,
		Protocol:  "http",
		QRSize:    DefaultQRSize,
		DeviceTTL: 10 * time.Minute,
	}
}

var configValidator = validator.New()

// LoadConfig reads path (or config.yaml) on top of the defaults, applies
// RETADI_* environment overrides (a .env file is honoured) and validates the
// result. A missing file is not an error.
func LoadConfig(path string) (AppConfig, error) {
	cfg := DefaultAppConfig()
	if path == "" {
		path = DefaultConfigPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	_ = godotenv.Load()
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ValidateConfig checks struct constraints after overrides are merged.
func ValidateConfig(cfg AppConfig) error {
	if err := configValidator.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv("RETADI_PORT"); v != "" {
		port, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("invalid RETADI_PORT %q: %w", v, err)
		}
		cfg.Port = uint16(port)
	}
	if v := os.Getenv("RETADI_ASSET_ROOT"); v != "" {
		cfg.AssetRoot = v
	}
	if v := os.Getenv("RETADI_NOTIFY_URL"); v != "" {
		cfg.NotifyURL = v
	}
	return nil
}

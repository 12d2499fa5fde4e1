package utils

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"estatehub/pkg/models"
)

const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

type AuthConfig struct {
	AdminPassword string        `yaml:"admin_password"`
	JWTSecret     string        `yaml:"jwt_secret"`
	JWTIssuer     string        `yaml:"jwt_issuer"`
	JWTDuration   time.Duration `yaml:"jwt_duration"`
}

type AssetConfig struct {
	MaxEdge        int           `yaml:"max_edge"`
	Quality        float64       `yaml:"quality"`
	UploadEndpoint string        `yaml:"upload_endpoint"`
	UploadTimeout  time.Duration `yaml:"upload_timeout"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type SeedConfig struct {
	URL  string `yaml:"url"`
	File string `yaml:"file"`
}

type Config struct {
	HTTPAddr string      `yaml:"http_addr"`
	SyncAddr string      `yaml:"sync_addr"`
	DBPath   string      `yaml:"db_path"`
	Backend  string      `yaml:"backend"`
	Auth     AuthConfig  `yaml:"auth"`
	Assets   AssetConfig `yaml:"assets"`
	Mongo    MongoConfig `yaml:"mongo"`
	Seed     SeedConfig  `yaml:"seed"`
}

// DefaultConfig holds the dev defaults (change for demo / production).
func DefaultConfig() Config {
	return Config{
		HTTPAddr: ":8080",
		SyncAddr: ":7070",
		Backend:  BackendLocal,
		Auth: AuthConfig{
			AdminPassword: "admin",
			JWTSecret:     "dev-secret-change-me",
			JWTIssuer:     "estatehub",
			JWTDuration:   24 * time.Hour,
		},
		Assets: AssetConfig{
			MaxEdge:       1280,
			Quality:       0.8,
			UploadTimeout: 60 * time.Second,
		},
		Mongo: MongoConfig{
			Database: "estatehub",
		},
	}
}

// LoadConfig layers .env, an optional YAML file named by ESTATEHUB_CONFIG and
// ESTATEHUB_* environment variables over the defaults.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] .env not loaded: %v", err)
	}

	cfg := DefaultConfig()
	if path := os.Getenv("ESTATEHUB_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, models.ErrConfiguration)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.HTTPAddr, "ESTATEHUB_HTTP_ADDR")
	setString(&cfg.SyncAddr, "ESTATEHUB_SYNC_ADDR")
	setString(&cfg.DBPath, "ESTATEHUB_DB_PATH")
	setString(&cfg.Backend, "ESTATEHUB_BACKEND")

	setString(&cfg.Auth.AdminPassword, "ESTATEHUB_ADMIN_PASSWORD")
	setString(&cfg.Auth.JWTSecret, "ESTATEHUB_JWT_SECRET")
	setString(&cfg.Auth.JWTIssuer, "ESTATEHUB_JWT_ISSUER")
	if hours := os.Getenv("ESTATEHUB_JWT_TTL_HOURS"); hours != "" {
		// if parse fails, keep the current duration
		if n, err := strconv.Atoi(hours); err == nil && n > 0 {
			cfg.Auth.JWTDuration = time.Duration(n) * time.Hour
		}
	}

	if v := os.Getenv("ESTATEHUB_IMAGE_MAX_EDGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Assets.MaxEdge = n
		}
	}
	if v := os.Getenv("ESTATEHUB_IMAGE_QUALITY"); v != "" {
		if q, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Assets.Quality = q
		}
	}
	setString(&cfg.Assets.UploadEndpoint, "ESTATEHUB_UPLOAD_ENDPOINT")

	setString(&cfg.Mongo.URI, "ESTATEHUB_MONGO_URI")
	setString(&cfg.Mongo.Database, "ESTATEHUB_MONGO_DB")

	setString(&cfg.Seed.URL, "ESTATEHUB_SEED_URL")
	setString(&cfg.Seed.File, "ESTATEHUB_SEED_FILE")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Validate fails fast on settings the selected backend cannot run without.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendLocal:
	case BackendRemote:
		if c.Assets.UploadEndpoint == "" {
			return fmt.Errorf("remote backend needs ESTATEHUB_UPLOAD_ENDPOINT: %w", models.ErrConfiguration)
		}
		if c.Mongo.URI == "" {
			return fmt.Errorf("remote backend needs ESTATEHUB_MONGO_URI: %w", models.ErrConfiguration)
		}
	default:
		return fmt.Errorf("unknown backend %q: %w", c.Backend, models.ErrConfiguration)
	}

	if c.Auth.AdminPassword == "" {
		return fmt.Errorf("admin password is empty: %w", models.ErrConfiguration)
	}
	if c.Assets.MaxEdge <= 0 {
		return fmt.Errorf("image max edge must be positive: %w", models.ErrConfiguration)
	}
	if c.Assets.Quality <= 0 || c.Assets.Quality > 1 {
		return fmt.Errorf("image quality must be in (0,1]: %w", models.ErrConfiguration)
	}
	return nil
}

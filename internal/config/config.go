// Package config loads project settings from .ditaref.yaml, .env and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ditaref/ditaref/internal/storage"
)

const (
	FileName = ".ditaref.yaml"

	BackendFilesystem = "filesystem"
	BackendS3         = "s3"
)

type Config struct {
	Include []string      `yaml:"include,omitempty"`
	Ignore  []string      `yaml:"ignore,omitempty"`
	RootMap string        `yaml:"root_map,omitempty"`
	Formats []string      `yaml:"formats,omitempty"`
	Storage StorageConfig `yaml:"storage"`
}

type StorageConfig struct {
	Backend string   `yaml:"backend"`
	S3      S3Config `yaml:"s3,omitempty"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Region    string `yaml:"region,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	UseSSL    bool   `yaml:"use_ssl,omitempty"`
}

// Default returns the settings used when a project has no config file.
func Default() *Config {
	return &Config{
		Formats: []string{"dita"},
		Storage: StorageConfig{Backend: BackendFilesystem},
	}
}

// Path returns the default config file location for projectRoot.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, FileName)
}

// Load reads configPath (or the default file under projectRoot when empty),
// loads projectRoot/.env and applies DITAREF_* environment overrides. A
// missing default file is not an error.
func Load(projectRoot, configPath string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	explicit := configPath != ""
	if !explicit {
		configPath = Path(projectRoot)
	}

	cfg := Default()
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	applyEnv(cfg)
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := env("DITAREF_ROOT_MAP"); v != "" {
		cfg.RootMap = v
	}
	if v := env("DITAREF_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}

	s3 := &cfg.Storage.S3
	s3.Endpoint = firstNonEmpty(env("DITAREF_S3_ENDPOINT"), s3.Endpoint)
	s3.Region = firstNonEmpty(env("DITAREF_S3_REGION"), s3.Region)
	s3.AccessKey = firstNonEmpty(env("DITAREF_S3_ACCESS_KEY"), s3.AccessKey, env("MINIO_ROOT_USER"))
	s3.SecretKey = firstNonEmpty(env("DITAREF_S3_SECRET_KEY"), s3.SecretKey, env("MINIO_ROOT_PASSWORD"))
	s3.Bucket = firstNonEmpty(env("DITAREF_S3_BUCKET"), s3.Bucket)
	s3.Prefix = firstNonEmpty(env("DITAREF_S3_PREFIX"), s3.Prefix)
	if raw := env("DITAREF_S3_USE_SSL"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			s3.UseSSL = v
		}
	}
}

func (c *Config) normalize() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendFilesystem
	}
	if len(c.Formats) == 0 {
		c.Formats = []string{"dita"}
	}
	c.RootMap = strings.TrimSpace(c.RootMap)
}

// Validate checks the settings that cannot be fixed up silently.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFilesystem:
		return nil
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required for the s3 backend")
		}
		if c.Storage.S3.Endpoint == "" {
			return errors.New("storage.s3.endpoint is required for the s3 backend")
		}
		return nil
	default:
		return fmt.Errorf("unsupported storage backend %q (supported: filesystem, s3)", c.Storage.Backend)
	}
}

// S3 converts the S3 section into provider settings.
func (c *Config) S3() storage.S3Config {
	s3 := c.Storage.S3
	return storage.S3Config{
		Endpoint:  s3.Endpoint,
		Region:    s3.Region,
		AccessKey: s3.AccessKey,
		SecretKey: s3.SecretKey,
		Bucket:    s3.Bucket,
		Prefix:    s3.Prefix,
		UseSSL:    s3.UseSSL,
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

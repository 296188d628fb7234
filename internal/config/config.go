package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

// DBConfig points at the PostgreSQL database holding the Nexus2 export tables.
type DBConfig struct {
	Driver   string `yaml:"driver" env:"DB_DRIVER" validate:"oneof=pgx postgres"`
	Host     string `yaml:"host" env:"DB_HOST" validate:"required"`
	Port     int    `yaml:"port" env:"DB_PORT" validate:"gt=0,lte=65535"`
	Name     string `yaml:"dbname" env:"DB_NAME" validate:"required"`
	User     string `yaml:"user" env:"DB_USER" validate:"required"`
	Password string `yaml:"password" env:"DB_PASS"`
	Schema   string `yaml:"schema" env:"DB_SCHEMA" validate:"required"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE" validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

// DSN returns a postgres:// URL understood by both the pgx and lib/pq drivers.
func (d DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// NexusConfig points at the Nexus3 REST API.
type NexusConfig struct {
	BaseURL   string        `yaml:"base_url" env:"NEXUS3_URL" validate:"required,url"`
	APIPrefix string        `yaml:"api_prefix" env:"NEXUS3_API_PREFIX"`
	Username  string        `yaml:"username" env:"NEXUS3_USER" validate:"required"`
	Password  string        `yaml:"password" env:"NEXUS3_PASS" validate:"required"`
	Timeout   time.Duration `yaml:"timeout" env:"NEXUS3_TIMEOUT" validate:"gt=0"`
	VerifySSL bool          `yaml:"verify_ssl" env:"NEXUS3_VERIFY_SSL"`
	CACert    string        `yaml:"ca_cert" env:"NEXUS3_CA_CERT"`
}

// Settings are the knobs consumed by the mapper and the runners.
type Settings struct {
	// BatchSize is carried for compatibility; rows are processed one at a time.
	BatchSize       int    `yaml:"batch_size" env:"MIGRATION_BATCH_SIZE" validate:"gte=1"`
	DefaultPassword string `yaml:"default_password" env:"MIGRATION_DEFAULT_PASSWORD" validate:"required"`
	BlobStore       string `yaml:"blob_store" env:"MIGRATION_BLOB_STORE" validate:"required"`
	CacheTTL        int    `yaml:"cache_ttl" env:"MIGRATION_CACHE_TTL" validate:"gt=0"` // minutes
	Debug           bool   `yaml:"debug" env:"MIGRATION_DEBUG"`
	LogFile         string `yaml:"log_file" env:"MIGRATION_LOG_FILE"`
	JournalPath     string `yaml:"journal_path" env:"MIGRATION_JOURNAL"`
	MetricsFile     string `yaml:"metrics_file" env:"MIGRATION_METRICS_FILE"`
}

// Config holds everything the migration needs. Build it with Load, adjust it
// from CLI flags, then call Validate once before any stage runs.
type Config struct {
	DB       DBConfig    `yaml:"db"`
	Nexus    NexusConfig `yaml:"nexus3"`
	Settings Settings    `yaml:"settings"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		DB: DBConfig{
			Driver:  "pgx",
			Host:    "localhost",
			Port:    5432,
			Name:    "nexus2",
			User:    "postgres",
			Schema:  "public",
			SSLMode: "disable",
		},
		Nexus: NexusConfig{
			BaseURL:   "http://localhost:8081",
			APIPrefix: "/service/rest",
			Username:  "admin",
			Timeout:   30 * time.Second,
		},
		Settings: Settings{
			BatchSize:       50,
			DefaultPassword: "changeme123",
			BlobStore:       "default",
			CacheTTL:        1440,
			JournalPath:     "nexusmig-journal.db",
		},
	}
}

// Load layers, lowest precedence first: defaults, the YAML file (when path is
// set), the given .env files that exist, and the process environment.
func Load(path string, envFiles []string) (Config, error) {
	c := Default()
	if path != "" {
		if err := c.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, err
	}
	if err := env.Parse(&c); err != nil {
		return Config{}, errors.Wrap(err, "parsing environment")
	}
	return c, nil
}

// loadFile reads a YAML config file over the current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parsing %s", path)
	}
	return nil
}

func loadEnvFiles(files []string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return errors.Wrap(err, "loading env files")
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field once. It returns a *models.ConfigError listing
// each offending field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validating config")
	}
	cerr := &models.ConfigError{}
	for _, fe := range verrs {
		cerr.Fields = append(cerr.Fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return cerr
}

// Connection returns the Nexus3 target as a models.Connection.
func (c Config) Connection() *models.Connection {
	return &models.Connection{
		Name:      "nexus3",
		URL:       c.Nexus.BaseURL,
		APIPrefix: c.Nexus.APIPrefix,
		Username:  c.Nexus.Username,
		Password:  c.Nexus.Password,
		Timeout:   c.Nexus.Timeout,
		Insecure:  !c.Nexus.VerifySSL,
		CACert:    c.Nexus.CACert,
	}
}

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env               string     `yaml:"env" env:"APP_ENV"`
	AdminToken        string     `yaml:"admin_token" env:"ADMIN_TOKEN"`
	ShortCodeLength   int        `yaml:"short_code_length" env:"SHORT_CODE_LENGTH"`
	ShortCodeAttempts int        `yaml:"short_code_attempts" env:"SHORT_CODE_ATTEMPTS"`
	APIPrefix         string     `yaml:"api_prefix" env:"API_PREFIX"`
	RedirectPrefix    string     `yaml:"redirect_prefix" env:"REDIRECT_PREFIX"`
	HTTPServer        HTTPServer `yaml:"http_server"`
	Storage           Storage    `yaml:"storage"`
	Postgres          Postgres   `yaml:"postgres"`
}

type HTTPServer struct {
	Host           string        `yaml:"host" env:"HTTP_SERVER_HOST"`
	Port           int           `yaml:"port" env:"HTTP_SERVER_PORT"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"HTTP_SERVER_READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"HTTP_SERVER_WRITE_TIMEOUT"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"HTTP_SERVER_IDLE_TIMEOUT"`
	MaxHeaderBytes int           `yaml:"max_header_bytes" env:"HTTP_SERVER_MAX_HEADER_BYTES"`
	CertFile       string        `yaml:"cert_file" env:"HTTP_SERVER_CERT_FILE"`
	KeyFile        string        `yaml:"key_file" env:"HTTP_SERVER_KEY_FILE"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Storage selects the persistence backend of the registry.
type Storage struct {
	Driver      string        `yaml:"driver" env:"STORAGE_DRIVER"`
	Path        string        `yaml:"path" env:"STORAGE_PATH"`
	SaveTimeout time.Duration `yaml:"save_timeout" env:"STORAGE_SAVE_TIMEOUT"`
}

var defaultStorage = Storage{
	Driver:      StorageFile,
	Path:        "urls.json",
	SaveTimeout: 5 * time.Second,
}

type Postgres struct {
	User            string        `yaml:"user" env:"POSTGRES_USER"`
	Password        string        `yaml:"password" env:"POSTGRES_PASSWORD"`
	Host            string        `yaml:"host" env:"POSTGRES_HOST"`
	Port            int           `yaml:"port" env:"POSTGRES_PORT"`
	DB              string        `yaml:"db" env:"POSTGRES_DB"`
	SSLMode         string        `yaml:"sslmode" env:"POSTGRES_SSLMODE"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env:"POSTGRES_CONN_MAX_IDLE_TIME"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"POSTGRES_CONN_MAX_LIFETIME"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"POSTGRES_MAX_IDLE_CONNS"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"POSTGRES_MAX_OPEN_CONNS"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    2,
	MaxOpenConns:    4,
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

// Load reads the YAML file at path on top of the defaults, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
	}
	defer f.Close()

	var cfg Config
	setDefaults(&cfg)

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to parse environment: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.ShortCodeLength = 6
	cfg.ShortCodeAttempts = 10
	cfg.APIPrefix = "/api"
	cfg.RedirectPrefix = "/s"
	cfg.HTTPServer = defaultHTTPServer
	cfg.Storage = defaultStorage
	cfg.Postgres = defaultPostgres
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Env {
	case EnvDev, EnvStage, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("unknown env %q", c.Env))
	}

	if c.AdminToken == "" {
		errs = append(errs, errors.New("admin_token is required"))
	}
	if c.ShortCodeLength <= 0 {
		errs = append(errs, errors.New("short_code_length must be positive"))
	}
	if c.ShortCodeAttempts <= 0 {
		errs = append(errs, errors.New("short_code_attempts must be positive"))
	}
	if !strings.HasPrefix(c.APIPrefix, "/") {
		errs = append(errs, fmt.Errorf("api_prefix %q must start with /", c.APIPrefix))
	}
	// An empty redirect prefix serves codes from the root.
	if c.RedirectPrefix != "" && !strings.HasPrefix(c.RedirectPrefix, "/") {
		errs = append(errs, fmt.Errorf("redirect_prefix %q must start with /", c.RedirectPrefix))
	}
	if strings.HasSuffix(c.APIPrefix, "/") {
		errs = append(errs, fmt.Errorf("api_prefix %q must not end with /", c.APIPrefix))
	}
	if strings.HasSuffix(c.RedirectPrefix, "/") {
		errs = append(errs, fmt.Errorf("redirect_prefix %q must not end with /, use an empty prefix for the root", c.RedirectPrefix))
	}
	if c.APIPrefix == c.RedirectPrefix {
		errs = append(errs, errors.New("api_prefix and redirect_prefix must differ"))
	}

	switch c.Storage.Driver {
	case StorageFile:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for the file driver"))
		}
	case StoragePostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Storage.SaveTimeout <= 0 {
		errs = append(errs, errors.New("storage.save_timeout must be positive"))
	}

	if c.Env == EnvProd && (c.HTTPServer.CertFile == "" || c.HTTPServer.KeyFile == "") {
		errs = append(errs, errors.New("cert_file and key_file are required in prod"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}

// Package config loads inkblog configuration from YAML and the environment.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvProd  = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the root configuration.
// Sources, later ones win: .env file, YAML file (explicit path, CONFIG_PATH,
// ./local.yaml), environment variables.
type Config struct {
	Env     string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP    HTTPConfig    `yaml:"http"`
	DB      DBConfig      `yaml:"db"`
	Session SessionConfig `yaml:"session"`
	Site    SiteConfig    `yaml:"site"`
	Mail    MailConfig    `yaml:"mail"`
	Blog    BlogConfig    `yaml:"blog"`
	Log     LogConfig     `yaml:"log"`
}

type HTTPConfig struct {
	Host            string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`

	// 反向代理的 IP 或 CIDR，为空时不信任任何 X-Forwarded-For
	TrustedProxies []string `yaml:"trusted_proxies" env:"HTTP_TRUSTED_PROXIES" env-separator:","`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

type DBConfig struct {
	Driver       string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	DSN          string `yaml:"dsn" env:"DATABASE_URL" env-default:"host=localhost user=postgres password=postgres dbname=inkblog port=5432 sslmode=disable"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
}

type SessionConfig struct {
	Secret string `yaml:"secret" env:"SESSION_SECRET" env-default:"secret_key_change_me"`
	Name   string `yaml:"name" env:"SESSION_NAME" env-default:"inkblog_session"`
}

type SiteConfig struct {
	Name string `yaml:"name" env:"SITE_NAME" env-default:"Inkblog"`
	URL  string `yaml:"url" env:"SITE_URL" env-default:"http://localhost:8080"`
}

// MailConfig 为空时邮件服务处于禁用状态
type MailConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASS"`
	From     string `yaml:"from" env:"SMTP_FROM"`
}

// Enabled reports whether enough SMTP settings are present to send mail.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.Port != "" && m.From != ""
}

type BlogConfig struct {
	PerPage          int           `yaml:"per_page" env:"BLOG_PER_PAGE" env-default:"5"`
	RankingSize      int           `yaml:"ranking_size" env:"BLOG_RANKING_SIZE" env-default:"5"`
	RankingWindow    time.Duration `yaml:"ranking_window" env:"BLOG_RANKING_WINDOW" env-default:"720h"`
	FlagThreshold    int           `yaml:"flag_threshold" env:"BLOG_FLAG_THRESHOLD" env-default:"1"`
	CommentMaxLength int           `yaml:"comment_max_length" env:"BLOG_COMMENT_MAX_LENGTH" env-default:"3000"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"` // json | pretty
}

// MustLoad panics if Load fails.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration. An explicit path wins over CONFIG_PATH, which
// wins over ./local.yaml; without any file only the environment is used.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		if _, err := os.Stat("local.yaml"); err == nil {
			path = "local.yaml"
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", path, err)
		}
		// ReadConfig overlays the environment on top of the file.
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	if c.DB.Driver != DriverPostgres && c.DB.Driver != DriverSQLite {
		return fmt.Errorf("db.driver must be %q or %q", DriverPostgres, DriverSQLite)
	}
	for _, p := range c.HTTP.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("http.trusted_proxies: %q is not an IP or CIDR", p)
			}
		}
	}
	if c.Blog.PerPage <= 0 {
		return fmt.Errorf("blog.per_page must be > 0")
	}
	if c.Blog.RankingSize <= 0 {
		return fmt.Errorf("blog.ranking_size must be > 0")
	}
	if c.Blog.RankingWindow < time.Hour {
		return fmt.Errorf("blog.ranking_window must be at least 1h")
	}
	if c.Blog.FlagThreshold < 1 {
		return fmt.Errorf("blog.flag_threshold must be >= 1")
	}
	if c.Blog.CommentMaxLength <= 0 {
		return fmt.Errorf("blog.comment_max_length must be > 0")
	}
	if c.Env != EnvLocal && len(c.Session.Secret) < 16 {
		return fmt.Errorf("session.secret must be at least 16 bytes outside %q", EnvLocal)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Security SecurityConfig `mapstructure:"security"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Session  SessionConfig  `mapstructure:"session"`
	Features FeaturesConfig `mapstructure:"features"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type SecurityConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	StaticDir    string        `mapstructure:"static_dir"`
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	Name             string        `mapstructure:"name"`
	SSLMode          string        `mapstructure:"sslmode"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	MaxOpenConns     int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	HistoryRetention time.Duration `mapstructure:"history_retention"`
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	ViewTTL  time.Duration `mapstructure:"view_ttl"`
}

type LoggerConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

type BackendConfig struct {
	Mode           string        `mapstructure:"mode"`
	WingetPath     string        `mapstructure:"winget_path"`
	DownloadsDir   string        `mapstructure:"downloads_dir"`
	DownloadsLabel string        `mapstructure:"downloads_label"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	SSH            SSHConfig     `mapstructure:"ssh"`
	HTTP           HTTPConfig    `mapstructure:"http"`
}

type SSHConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	User               string        `mapstructure:"user"`
	Password           string        `mapstructure:"password"`
	PrivateKeyPath     string        `mapstructure:"private_key_path"`
	RemoteDownloadsDir string        `mapstructure:"remote_downloads_dir"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
}

type HTTPConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SessionConfig struct {
	MaxMinimized   int           `mapstructure:"max_minimized"`
	ToastTTL       time.Duration `mapstructure:"toast_ttl"`
	AutoConfirm    bool          `mapstructure:"auto_confirm"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
}

type FeaturesConfig struct {
	RequestIDHeader      string `mapstructure:"request_id_header"`
	EnableRequestLogging bool   `mapstructure:"enable_request_logging"`
	EnableMetrics        bool   `mapstructure:"enable_metrics"`
}

type AuthConfig struct {
	AdminAPIKey    string   `mapstructure:"admin_api_key"`
	BackendToken   string   `mapstructure:"backend_token"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.static_dir", "./gui")

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.history_retention", 30*24*time.Hour)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.view_ttl", 10*time.Minute)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.output_paths", []string{"stdout"})
	v.SetDefault("logger.error_output_paths", []string{"stderr"})

	v.SetDefault("backend.mode", "local")
	v.SetDefault("backend.winget_path", "winget")
	v.SetDefault("backend.downloads_dir", defaultDownloadsDir())
	v.SetDefault("backend.downloads_label", "Downloads")
	v.SetDefault("backend.command_timeout", 30*time.Minute)
	v.SetDefault("backend.ssh.port", 22)
	v.SetDefault("backend.ssh.timeout", 30*time.Second)
	v.SetDefault("backend.ssh.max_retries", 3)
	v.SetDefault("backend.http.timeout", 30*time.Minute)

	v.SetDefault("session.max_minimized", 20)
	v.SetDefault("session.toast_ttl", 3*time.Second)
	v.SetDefault("session.confirm_timeout", 5*time.Minute)

	v.SetDefault("features.request_id_header", "X-Request-ID")
	v.SetDefault("features.enable_metrics", true)
}

func defaultDownloadsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "downloads"
	}
	return filepath.Join(home, "Downloads")
}

// Load reads the config file at path. A missing file is not an error; the
// defaults and EASYWINGET_* environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix("EASYWINGET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend.Mode {
	case "local":
	case "ssh":
		if c.Backend.SSH.Host == "" || c.Backend.SSH.User == "" {
			return fmt.Errorf("backend.ssh.host and backend.ssh.user are required in ssh mode")
		}
	case "http":
		if c.Backend.HTTP.BaseURL == "" {
			return fmt.Errorf("backend.http.base_url is required in http mode")
		}
	default:
		return fmt.Errorf("unknown backend.mode %q", c.Backend.Mode)
	}
	if c.Session.MaxMinimized < 0 {
		return fmt.Errorf("session.max_minimized must not be negative")
	}
	return nil
}

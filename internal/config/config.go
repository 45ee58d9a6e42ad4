package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env:"LISTEN_BIND_IP" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env:"LISTEN_PORT" env-default:"8080"`
}

// DatabaseConfig selects the invitation store backend.
// Driver "mysql" uses the connection fields; "sqlite" uses SqlitePath.
type DatabaseConfig struct {
	Driver     string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite"`
	HostName   string `yaml:"hostname" env:"DB_HOST" env-default:"localhost"`
	Port       string `yaml:"port" env:"DB_PORT" env-default:"3306"`
	UserName   string `yaml:"username" env:"DB_USER" env-default:""`
	Password   string `yaml:"password" env:"DB_PASSWORD" env-default:""`
	Database   string `yaml:"database" env:"DB_NAME" env-default:"courseadmin"`
	Prefix     string `yaml:"prefix" env-default:""`
	SqlitePath string `yaml:"sqlite_path" env:"DB_SQLITE_PATH" env-default:"courseadmin.db"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"courseadmin"`
}

type AuthConfig struct {
	JwtSecret     string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET" env-default:""`
	TokenTTLHours int    `yaml:"token_ttl_hours" env-default:"24"`
	AdminEmail    string `yaml:"admin_email" env:"AUTH_ADMIN_EMAIL" env-default:""`
	AdminPassword string `yaml:"admin_password" env:"AUTH_ADMIN_PASSWORD" env-default:""`
}

type TelegramConfig struct {
	Enabled      bool    `yaml:"enabled" env-default:"false"`
	ApiKey       string  `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	AdminChatIds []int64 `yaml:"admin_chat_ids"`
	MinLogLevel  string  `yaml:"min_log_level" env-default:"error"`
}

type CorsConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env-default:"http://localhost:3000"`
}

type RateLimitConfig struct {
	Requests  int `yaml:"requests" env-default:"120"`
	WindowSec int `yaml:"window_sec" env-default:"60"`
}

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Auth      AuthConfig      `yaml:"auth"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Cors      CorsConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Listen    Listen          `yaml:"listen"`
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
		if err = instance.check(); err != nil {
			log.Fatal(fmt.Errorf("config: %w", err))
		}
	})
	return instance
}

func (c *Config) check() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("database driver %q is not supported", c.Database.Driver)
	}
	if len(c.Auth.JwtSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}
	if c.Telegram.Enabled && c.Telegram.ApiKey == "" {
		return fmt.Errorf("telegram.api_key is required when telegram is enabled")
	}
	return nil
}

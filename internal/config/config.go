package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env     string        `yaml:"env" env:"APP_ENV" env-default:"local"`
	HTTP    HTTPConfig    `yaml:"http"`
	Storage StorageConfig `yaml:"storage"`
	JWT     JWTConfig     `yaml:"jwt"`
}

type HTTPConfig struct {
	Port            int           `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"5s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

type StorageConfig struct {
	Type  string      `yaml:"type" env:"STORAGE_TYPE" env-default:"sqlite"`
	Path  string      `yaml:"path" env:"STORAGE_PATH"`
	Mongo MongoConfig `yaml:"mongo"`
}

type MongoConfig struct {
	URI      string `yaml:"uri" env:"MONGO_URI"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"finapi"`
}

type JWTConfig struct {
	Secret        string        `yaml:"secret" env:"JWT_SECRET_KEY" env-required:"true"`
	Algorithm     string        `yaml:"algorithm" env:"JWT_ALGORITHM" env-default:"HS256"`
	Issuer        string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"finance_api"`
	Audience      string        `yaml:"audience" env:"JWT_AUDIENCE" env-default:"finance_api_users"`
	AccessTTL     time.Duration `yaml:"access_ttl" env:"JWT_ACCESS_TTL" env-default:"1h"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl" env:"JWT_REFRESH_TTL" env-default:"720h"`
	RefreshRotate bool          `yaml:"refresh_rotate" env:"JWT_REFRESH_ROTATE" env-default:"true"`
}

func LoadConfig(path string) *Config {
	var cfg Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		panic("config file not found: " + path)
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	return &cfg
}

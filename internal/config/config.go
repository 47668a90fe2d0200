package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "./config/local.yaml"

type Config struct {
	Env         string `yaml:"env" env-default:"local"`
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-required:"true"`
	RedisAddr   string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	HTTPServer  `yaml:"http_server"`
	Sweep       Sweep    `yaml:"sweep"`
	Booking     Booking  `yaml:"booking"`
	Meeting     Meeting  `yaml:"meeting"`
	Mailer      Mailer   `yaml:"mailer"`
	Payments    Payments `yaml:"payments"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
}

type Sweep struct {
	Interval     time.Duration `yaml:"interval" env-default:"5m"`
	InitialDelay time.Duration `yaml:"initial_delay" env-default:"10s"`
}

type Booking struct {
	LockTTL time.Duration `yaml:"lock_ttl" env-default:"10s"`
	// IANA zone availability windows are written in
	Location string `yaml:"location" env:"BOOKING_LOCATION" env-default:"UTC"`
}

type Meeting struct {
	BaseURL string        `yaml:"base_url" env:"MEETING_BASE_URL"`
	APIKey  string        `yaml:"api_key" env:"MEETING_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

type Mailer struct {
	BaseURL string        `yaml:"base_url" env:"MAILER_BASE_URL" env-default:"https://api.resend.com"`
	APIKey  string        `yaml:"api_key" env:"MAILER_API_KEY"`
	From    string        `yaml:"from" env:"MAILER_FROM" env-default:"bookings@localhost"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

type Payments struct {
	// empty disables the X-Webhook-Secret check
	WebhookSecret string `yaml:"webhook_secret" env:"PAYMENTS_WEBHOOK_SECRET"`
}

// MustLoad reads the config file named by -config or CONFIG_PATH, with
// environment variables taking precedence over the file.
func MustLoad() *Config {
	cfg, err := Load(configPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}

	if _, err := time.LoadLocation(cfg.Booking.Location); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func configPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = defaultConfigPath
	}

	return path
}

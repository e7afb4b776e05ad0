package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Marketplace MarketplaceConfig
	Scheduler   SchedulerConfig
	S3          S3Config
	PostgresURL string
	DBPath      string
	LogLevel    string
	Accounts    map[string]*AccountConfig
}

type MarketplaceConfig struct {
	BaseURL     string
	Referer     string
	TimeoutMS   int
	PageDelayMS int
}

type SchedulerConfig struct {
	Interval   time.Duration
	Cron       string
	OrderLimit int
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// AccountConfig is one marketplace login. The cookie string is the
// raw browser paste; it is validated when the session is built.
type AccountConfig struct {
	Name       string `yaml:"name"`
	Cookies    string `yaml:"cookies"`
	CookieFile string `yaml:"cookie_file"`
	OrderLimit int    `yaml:"order_limit"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Marketplace: MarketplaceConfig{
			BaseURL:     getEnv("POSH_BASE_URL", "https://poshmark.com"),
			Referer:     os.Getenv("POSH_REFERER"),
			TimeoutMS:   getEnvInt("POSH_TIMEOUT_MS", 15000),
			PageDelayMS: getEnvInt("POSH_PAGE_DELAY_MS", 100),
		},
		Scheduler: SchedulerConfig{
			Cron:       os.Getenv("SYNC_CRON"),
			OrderLimit: getEnvInt("SYNC_ORDER_LIMIT", 100),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		PostgresURL: os.Getenv("DATABASE_URL"),
		DBPath:      getEnv("DB_PATH", "goposh.db"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Accounts:    make(map[string]*AccountConfig),
	}

	if interval := os.Getenv("SYNC_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadAccountConfigs(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadAccountConfigs() error {
	configDir := "config/accounts"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var account AccountConfig
		if err := yaml.Unmarshal(data, &account); err != nil {
			return err
		}

		// Cookies may live in a separate file so the yaml can be
		// committed without credentials.
		if account.Cookies == "" && account.CookieFile != "" {
			raw, err := os.ReadFile(account.CookieFile)
			if err != nil {
				return err
			}
			account.Cookies = string(raw)
		}

		c.Accounts[account.Name] = &account
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Telegram    TelegramConfig            `json:"telegram"`
	Redis       RedisConfig               `json:"redis"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Links       []Link                    `json:"links"`
	Payment     PaymentConfig             `json:"payment"`
}

type BasicConfig struct {
	ServerAddress     string `json:"server_address"`
	SessionTTLMinutes int    `json:"session_ttl_minutes"`
	MinWorkers        int    `json:"min_workers"`
	MaxWorkers        int    `json:"max_workers"`
	QueueSize         int    `json:"queue_size"`
	WorkerIdleTimeout int    `json:"worker_idle_timeout"`
}

type TelegramConfig struct {
	BotToken       string `json:"bot_token"`
	AdminChatID    int64  `json:"admin_chat_id"`
	WebhookBaseURL string `json:"webhook_base_url"`
	WebhookSecret  string `json:"webhook_secret"`
	AssetMarker    string `json:"asset_marker"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

// Link is one entry of the static link catalog shown by the menu.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// PaymentConfig holds the payment addresses displayed on request.
type PaymentConfig struct {
	Addresses []PaymentAddress `json:"addresses"`
}

type PaymentAddress struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// DefaultAssetMarker is the reserved caption the administrator uses to
// register the reusable payment image.
const DefaultAssetMarker = "#paypal"

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("telegram.bot_token must be configured")
	}
	if cfg.Telegram.AssetMarker == "" {
		cfg.Telegram.AssetMarker = DefaultAssetMarker
	}
	if cfg.BasicConfig.SessionTTLMinutes <= 0 {
		cfg.BasicConfig.SessionTTLMinutes = 24 * 60
	}

	// Relative sqlite DSNs resolve against the config directory.
	for name, db := range cfg.Databases {
		if db.DSN != "" && db.DSN != ":memory:" && !filepath.IsAbs(db.DSN) {
			db.DSN = filepath.Join(filepath.Dir(absPath), db.DSN)
			cfg.Databases[name] = db
		}
	}

	return &cfg, nil
}

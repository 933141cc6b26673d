package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kanban/internal/model"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API struct {
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"api"`

	Session struct {
		Backend string `yaml:"backend"` // sqlite | redis | failover | memory
		Path    string `yaml:"path"`
		Prefix  string `yaml:"prefix"`
	} `yaml:"session"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Board struct {
		Branch              string         `yaml:"branch"`
		PollIntervalSeconds int            `yaml:"poll_interval_seconds"`
		AutoRefresh         *bool          `yaml:"auto_refresh"`
		CascadeDeletes      *bool          `yaml:"cascade_deletes"`
		DefaultCapacity     int            `yaml:"default_capacity"`
		Layout              map[string]int `yaml:"layout"`
	} `yaml:"board"`

	HappyHour struct {
		Enabled              *bool  `yaml:"enabled"`
		CheckIntervalSeconds int    `yaml:"check_interval_seconds"`
		Message              string `yaml:"message"`
	} `yaml:"happy_hour"`

	Telegram struct {
		BotToken       string  `yaml:"bot_token"`
		ChatID         string  `yaml:"chat_id"`
		ThreadID       string  `yaml:"thread_id"`
		Debug          bool    `yaml:"debug"`
		RatePerSecond  float64 `yaml:"rate_per_second"`
		MaxRetries     int     `yaml:"max_retries"`
		RetryDelaySecs []int   `yaml:"retry_delay_seconds"`
	} `yaml:"telegram"`

	Guest struct {
		Enabled        bool     `yaml:"enabled"`
		Port           int      `yaml:"port"`
		PublicURL      string   `yaml:"public_url"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		CallsPerMinute int      `yaml:"calls_per_minute"`
		NameCacheTTL   int      `yaml:"name_cache_ttl_seconds"`
		CallTypes      []string `yaml:"call_types"`
	} `yaml:"guest"`

	Admin struct {
		PasswordHash string `yaml:"password_hash"`
		JWTSecret    string `yaml:"jwt_secret"`
		Bind         string `yaml:"bind"`
		Port         int    `yaml:"port"`
	} `yaml:"admin"`

	Export struct {
		Dir string `yaml:"dir"`
	} `yaml:"export"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api.base_url is required")
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "sqlite"
	}
	if cfg.Session.Path == "" {
		cfg.Session.Path = "data/session.db"
	}
	if cfg.Session.Prefix == "" {
		cfg.Session.Prefix = "kanban:session:"
	}
	if cfg.Session.Backend == "sqlite" || cfg.Session.Backend == "failover" {
		if err = os.MkdirAll(filepath.Dir(cfg.Session.Path), 0o755); err != nil {
			return nil, err
		}
	}

	if cfg.Board.Branch == "" {
		cfg.Board.Branch = string(model.BranchMSK)
	}
	if !model.Branch(cfg.Board.Branch).Valid() {
		return nil, fmt.Errorf("board.branch: unknown branch %q", cfg.Board.Branch)
	}
	if cfg.HappyHour.Message == "" {
		cfg.HappyHour.Message = "Напоминание: Счастливые часы!"
	}
	if cfg.Telegram.ChatID == "" {
		cfg.Telegram.ChatID = "-1002686555288"
	}
	if cfg.Telegram.ThreadID == "" {
		cfg.Telegram.ThreadID = "7"
	}
	if len(cfg.Guest.CallTypes) == 0 {
		cfg.Guest.CallTypes = []string{"waiter", "hookah", "gamemaster"}
	}
	if cfg.Admin.Bind == "" {
		cfg.Admin.Bind = "127.0.0.1"
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "exports"
	}

	return &cfg, nil
}

func (c *Config) APITimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	if c.Board.PollIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Board.PollIntervalSeconds) * time.Second
}

func (c *Config) AutoRefresh() bool {
	return c.Board.AutoRefresh == nil || *c.Board.AutoRefresh
}

func (c *Config) CascadeDeletes() bool {
	return c.Board.CascadeDeletes == nil || *c.Board.CascadeDeletes
}

// Layout returns the default zone count per branch used to bootstrap an
// empty store.
func (c *Config) Layout() map[model.Branch]int {
	if len(c.Board.Layout) == 0 {
		return map[model.Branch]int{model.BranchMSK: 22, model.BranchPolevaya: 20}
	}
	out := make(map[model.Branch]int, len(c.Board.Layout))
	for b, n := range c.Board.Layout {
		out[model.Branch(b)] = n
	}
	return out
}

func (c *Config) DefaultCapacity() int {
	if c.Board.DefaultCapacity <= 0 {
		return 4
	}
	return c.Board.DefaultCapacity
}

func (c *Config) HappyHourEnabled() bool {
	return c.HappyHour.Enabled == nil || *c.HappyHour.Enabled
}

func (c *Config) HappyHourCheckInterval() time.Duration {
	if c.HappyHour.CheckIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.HappyHour.CheckIntervalSeconds) * time.Second
}

func (c *Config) TelegramRetryDelays() []time.Duration {
	if len(c.Telegram.RetryDelaySecs) == 0 {
		return []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}
	}
	out := make([]time.Duration, 0, len(c.Telegram.RetryDelaySecs))
	for _, s := range c.Telegram.RetryDelaySecs {
		out = append(out, time.Duration(s)*time.Second)
	}
	return out
}

func (c *Config) GuestPort() int {
	if c.Guest.Port <= 0 {
		return 8080
	}
	return c.Guest.Port
}

func (c *Config) GuestCallsPerMinute() int {
	if c.Guest.CallsPerMinute <= 0 {
		return 6
	}
	return c.Guest.CallsPerMinute
}

func (c *Config) GuestNameCacheTTL() time.Duration {
	if c.Guest.NameCacheTTL <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Guest.NameCacheTTL) * time.Second
}

func (c *Config) AdminAddr() string {
	port := c.Admin.Port
	if port <= 0 {
		port = 8081
	}
	return fmt.Sprintf("%s:%d", c.Admin.Bind, port)
}

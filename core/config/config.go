package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultMissingPermissionMessage is replied when a permission check fails.
const DefaultMissingPermissionMessage = "You are not allowed to use this command!"

// DispatchConfig controls how incoming messages are routed to commands.
type DispatchConfig struct {
	Prefix string `yaml:"prefix" envconfig:"DISPATCH_PREFIX"`
	// MissingPermissionMessage overrides the denial reply; empty keeps the default.
	MissingPermissionMessage      string `yaml:"missing_permission_message"`
	DisableMissingPermissionReply bool   `yaml:"disable_missing_permission_reply"`
	// AsyncWorkers bounds async invocations; 0 starts a goroutine per invocation.
	AsyncWorkers   int `yaml:"async_workers" envconfig:"DISPATCH_ASYNC_WORKERS"`
	AsyncQueueSize int `yaml:"async_queue_size"`
	// Builtins registers help, ping, grant and perms.
	Builtins *bool `yaml:"builtins"`
}

// BuiltinsEnabled reports whether built-in commands should be registered.
func (d DispatchConfig) BuiltinsEnabled() bool {
	return d.Builtins == nil || *d.Builtins
}

// DiscordConfig holds Discord gateway settings.
type DiscordConfig struct {
	Enabled   bool   `yaml:"enabled" envconfig:"DISCORD_ENABLED"`
	Token     string `yaml:"token" envconfig:"DISCORD_TOKEN"`
	Tokenizer string `yaml:"tokenizer"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"TELEGRAM_ENABLED"`
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int    `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	Tokenizer              string `yaml:"tokenizer"`
	SendWorkers            int    `yaml:"send_workers"`
	SendQueueSize          int    `yaml:"send_queue_size"`
	SendMaxRetries         int    `yaml:"send_max_retries"`
}

// WebhookConfig specifies Telegram webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// SlackConfig holds Slack Socket Mode settings.
type SlackConfig struct {
	Enabled   bool   `yaml:"enabled" envconfig:"SLACK_ENABLED"`
	BotToken  string `yaml:"bot_token" envconfig:"SLACK_BOT_TOKEN"`
	AppToken  string `yaml:"app_token" envconfig:"SLACK_APP_TOKEN"`
	Tokenizer string `yaml:"tokenizer"`
	Debug     bool   `yaml:"debug"`
}

// ConsoleConfig holds settings for the local interactive adapter.
type ConsoleConfig struct {
	Enabled     bool   `yaml:"enabled" envconfig:"CONSOLE_ENABLED"`
	Prompt      string `yaml:"prompt"`
	UserID      string `yaml:"user_id"`
	Private     bool   `yaml:"private"`
	HistoryFile string `yaml:"history_file"`
	Tokenizer   string `yaml:"tokenizer"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAgeDays  int    `yaml:"max_age_days"`
	Compress    bool   `yaml:"compress"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// AuditConfig enables the persistent invocation journal.
type AuditConfig struct {
	Enabled  bool           `yaml:"enabled" envconfig:"AUDIT_ENABLED"`
	Database DatabaseConfig `yaml:"database"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// Adapter names as they appear in logs and on events.
const (
	AdapterDiscord  = "discord"
	AdapterTelegram = "telegram"
	AdapterSlack    = "slack"
	AdapterConsole  = "console"
)

// Config aggregates the whole runtime configuration.
type Config struct {
	Dispatch DispatchConfig `yaml:"dispatch"`
	// Permissions are granted at startup, keyed by platform user id.
	Permissions map[string][]string `yaml:"permissions" ignored:"true"`
	Discord     DiscordConfig       `yaml:"discord"`
	Telegram    TelegramConfig      `yaml:"telegram"`
	Webhook     WebhookConfig       `yaml:"webhook"`
	Slack       SlackConfig         `yaml:"slack"`
	Console     ConsoleConfig       `yaml:"console"`
	Logging     LoggingConfig       `yaml:"logging"`
	Audit       AuditConfig         `yaml:"audit"`
}

// EnabledAdapters lists enabled adapters in a stable order.
func (c *Config) EnabledAdapters() []string {
	if c == nil {
		return nil
	}
	var out []string
	if c.Discord.Enabled {
		out = append(out, AdapterDiscord)
	}
	if c.Telegram.Enabled {
		out = append(out, AdapterTelegram)
	}
	if c.Slack.Enabled {
		out = append(out, AdapterSlack)
	}
	if c.Console.Enabled {
		out = append(out, AdapterConsole)
	}
	return out
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if len(cfg.EnabledAdapters()) == 0 {
		return fmt.Errorf("at least one adapter must be enabled: discord, telegram, slack, console")
	}

	if err := normalizeDispatch(&cfg.Dispatch); err != nil {
		return err
	}
	if err := normalizePermissions(cfg.Permissions); err != nil {
		return err
	}

	if cfg.Discord.Enabled {
		if strings.TrimSpace(cfg.Discord.Token) == "" {
			return fmt.Errorf("discord.token is required when discord is enabled")
		}
	}
	if err := normalizeTokenizer("discord", &cfg.Discord.Tokenizer); err != nil {
		return err
	}

	if cfg.Telegram.Enabled {
		if err := normalizeTelegram(cfg); err != nil {
			return err
		}
	}
	if err := normalizeTokenizer("telegram", &cfg.Telegram.Tokenizer); err != nil {
		return err
	}

	if cfg.Slack.Enabled {
		if strings.TrimSpace(cfg.Slack.BotToken) == "" {
			return fmt.Errorf("slack.bot_token is required when slack is enabled")
		}
		if !strings.HasPrefix(strings.TrimSpace(cfg.Slack.AppToken), "xapp-") {
			return fmt.Errorf("slack.app_token must be an app-level token starting with xapp-")
		}
	}
	if err := normalizeTokenizer("slack", &cfg.Slack.Tokenizer); err != nil {
		return err
	}

	if cfg.Console.Enabled {
		if strings.TrimSpace(cfg.Console.Prompt) == "" {
			cfg.Console.Prompt = "> "
		}
		if strings.TrimSpace(cfg.Console.UserID) == "" {
			cfg.Console.UserID = "console"
		}
	}
	if err := normalizeTokenizer("console", &cfg.Console.Tokenizer); err != nil {
		return err
	}

	if cfg.Audit.Enabled {
		if err := normalizeDatabase(&cfg.Audit.Database); err != nil {
			return err
		}
	}

	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxBackups < 0 || cfg.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging rotation limits must be >= 0")
	}
	return nil
}

func normalizeDispatch(d *DispatchConfig) error {
	if d.MissingPermissionMessage == "" {
		d.MissingPermissionMessage = DefaultMissingPermissionMessage
	}
	if d.AsyncWorkers < 0 {
		return fmt.Errorf("dispatch.async_workers must be >= 0")
	}
	if d.AsyncQueueSize < 0 {
		return fmt.Errorf("dispatch.async_queue_size must be >= 0")
	}
	if d.AsyncWorkers > 0 && d.AsyncQueueSize == 0 {
		d.AsyncQueueSize = d.AsyncWorkers * 16
	}
	return nil
}

func normalizePermissions(perms map[string][]string) error {
	for user, list := range perms {
		if strings.TrimSpace(user) == "" {
			return fmt.Errorf("permissions: empty user id")
		}
		for i, p := range list {
			p = strings.TrimSpace(p)
			if p == "" {
				return fmt.Errorf("permissions.%s: empty permission", user)
			}
			list[i] = p
		}
	}
	return nil
}

func normalizeTelegram(cfg *Config) error {
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if cfg.Telegram.SendWorkers < 0 || cfg.Telegram.SendQueueSize < 0 || cfg.Telegram.SendMaxRetries < 0 {
		return fmt.Errorf("telegram send settings must be >= 0")
	}
	return nil
}

// normalizeTokenizer lowercases the value and rejects unknown strategies.
// Empty stays empty so each adapter can apply its own default.
func normalizeTokenizer(section string, value *string) error {
	v := strings.ToLower(strings.TrimSpace(*value))
	switch v {
	case "", "whitespace", "fields", "runs", "space", "single":
		*value = v
		return nil
	}
	return fmt.Errorf("invalid %s.tokenizer %q; allowed: whitespace, space", section, *value)
}

func normalizeDatabase(db *DatabaseConfig) error {
	if strings.TrimSpace(db.Host) == "" {
		return fmt.Errorf("audit.database.host is required when audit is enabled")
	}
	if strings.TrimSpace(db.Name) == "" {
		return fmt.Errorf("audit.database.name is required when audit is enabled")
	}
	if db.Port == "" {
		db.Port = "5432"
	}
	if db.SSLMode == "" {
		db.SSLMode = "disable"
	}
	if db.MaxConnections <= 0 {
		db.MaxConnections = 4
	}
	return nil
}

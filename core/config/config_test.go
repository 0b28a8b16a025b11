package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRequiresAdapter(t *testing.T) {
	err := Normalize(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one adapter")
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{
		Console:     ConsoleConfig{Enabled: true, Tokenizer: " Space "},
		Permissions: map[string][]string{"42": {" admin.* "}},
		Dispatch:    DispatchConfig{AsyncWorkers: 2},
	}
	require.NoError(t, Normalize(cfg))

	assert.Equal(t, DefaultMissingPermissionMessage, cfg.Dispatch.MissingPermissionMessage)
	assert.Equal(t, 32, cfg.Dispatch.AsyncQueueSize)
	assert.True(t, cfg.Dispatch.BuiltinsEnabled())
	assert.Equal(t, "> ", cfg.Console.Prompt)
	assert.Equal(t, "console", cfg.Console.UserID)
	assert.Equal(t, "space", cfg.Console.Tokenizer)
	assert.Equal(t, []string{"admin.*"}, cfg.Permissions["42"])
	assert.Equal(t, []string{AdapterConsole}, cfg.EnabledAdapters())
}

func TestNormalizeRejectsInvalidValues(t *testing.T) {
	cases := map[string]Config{
		"tokenizer": {Console: ConsoleConfig{Enabled: true, Tokenizer: "regex"}},
		"workers":   {Console: ConsoleConfig{Enabled: true}, Dispatch: DispatchConfig{AsyncWorkers: -1}},
		"discord":   {Discord: DiscordConfig{Enabled: true}},
		"slack":     {Slack: SlackConfig{Enabled: true, BotToken: "xoxb-1", AppToken: "xoxb-2"}},
		"run_mode":  {Telegram: TelegramConfig{Enabled: true, Token: "t", RunMode: "push"}},
		"webhook":   {Telegram: TelegramConfig{Enabled: true, Token: "t", RunMode: "webhook"}},
		"audit":     {Console: ConsoleConfig{Enabled: true}, Audit: AuditConfig{Enabled: true}},
		"perm":      {Console: ConsoleConfig{Enabled: true}, Permissions: map[string][]string{"1": {""}}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := cfg
			assert.Error(t, Normalize(&cfg))
		})
	}
}

func TestNormalizeTelegramPollingAlias(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{Enabled: true, Token: "t", RunMode: "Polling"}}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
}

func TestLoadOverlaysEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
dispatch:
  prefix: "!"
  builtins: false
permissions:
  "42": ["admin.*", "mod.kick"]
console:
  enabled: true
audit:
  enabled: true
  database:
    host: db
    name: cmdcore
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("DISPATCH_PREFIX", "?")
	t.Setenv("DB_PORT", "6543")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "?", cfg.Dispatch.Prefix)
	assert.False(t, cfg.Dispatch.BuiltinsEnabled())
	assert.Equal(t, []string{"admin.*", "mod.kick"}, cfg.Permissions["42"])
	assert.Equal(t, "6543", cfg.Audit.Database.Port)
	assert.Equal(t, "disable", cfg.Audit.Database.SSLMode)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

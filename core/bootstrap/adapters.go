package bootstrap

import (
	"github.com/m3rciful/cmdcore/core/chat"
	coreconfig "github.com/m3rciful/cmdcore/core/config"
	"github.com/m3rciful/cmdcore/core/console"
	"github.com/m3rciful/cmdcore/core/discord"
	"github.com/m3rciful/cmdcore/core/slack"
	"github.com/m3rciful/cmdcore/core/telegram"
)

// NewAdapters builds every adapter enabled in cfg, in EnabledAdapters order.
func NewAdapters(cfg *coreconfig.Config) ([]chat.Adapter, error) {
	var out []chat.Adapter
	for _, name := range cfg.EnabledAdapters() {
		var (
			a   chat.Adapter
			err error
		)
		switch name {
		case coreconfig.AdapterDiscord:
			a, err = discord.New(cfg.Discord)
		case coreconfig.AdapterTelegram:
			a, err = telegram.New(cfg.Telegram, cfg.Webhook)
		case coreconfig.AdapterSlack:
			a, err = slack.New(cfg.Slack)
		case coreconfig.AdapterConsole:
			a, err = console.New(cfg.Console)
		}
		if err != nil {
			return nil, err
		}
		if a != nil {
			out = append(out, a)
		}
	}
	return out, nil
}

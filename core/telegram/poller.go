package telegram

import (
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/cmdcore/core/config"
)

const defaultPollTimeout = 10 * time.Second

// pollTimeout returns the configured long-poll timeout or the default.
func pollTimeout(cfg coreconfig.TelegramConfig) time.Duration {
	if cfg.LongPollTimeoutSeconds > 0 {
		return time.Duration(cfg.LongPollTimeoutSeconds) * time.Second
	}
	return defaultPollTimeout
}

// buildPoller selects a webhook listener or a long poller by run mode.
func buildPoller(cfg coreconfig.TelegramConfig, hook coreconfig.WebhookConfig) tele.Poller {
	if strings.EqualFold(strings.TrimSpace(cfg.RunMode), coreconfig.RunModeWebhook) {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", hook.Listen, hook.Port),
			Endpoint: &tele.WebhookEndpoint{PublicURL: hook.URL},
		}
	}
	return &tele.LongPoller{Timeout: pollTimeout(cfg)}
}

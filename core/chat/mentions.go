package chat

import "regexp"

// Mentions extracts identifiers from in-text mention markup.
type Mentions interface {
	// UserID reports the id of the first user mention found in token.
	UserID(token string) (string, bool)
	// ChannelID reports the id when token is exactly a channel mention.
	ChannelID(token string) (string, bool)
}

// PatternMentions implements Mentions with regular expressions whose first
// capture group is the identifier. A nil pattern never matches.
type PatternMentions struct {
	User    *regexp.Regexp
	Channel *regexp.Regexp
}

var (
	// DiscordMentions matches <@id>, <@!id> and <#id>.
	DiscordMentions = PatternMentions{
		User:    regexp.MustCompile(`<@!?(\d+)>`),
		Channel: regexp.MustCompile(`^<#(\d+)>$`),
	}
	// SlackMentions matches <@U123>, <@U123|name> and <#C123|name>.
	SlackMentions = PatternMentions{
		User:    regexp.MustCompile(`<@([A-Z0-9]+)(?:\|[^>]*)?>`),
		Channel: regexp.MustCompile(`^<#([A-Z0-9]+)(?:\|[^>]*)?>$`),
	}
	// TelegramMentions matches @username. Telegram has no channel markup.
	TelegramMentions = PatternMentions{
		User: regexp.MustCompile(`@([A-Za-z0-9_]{3,})`),
	}
)

// UserID implements Mentions.
func (p PatternMentions) UserID(token string) (string, bool) {
	return firstGroup(p.User, token)
}

// ChannelID implements Mentions.
func (p PatternMentions) ChannelID(token string) (string, bool) {
	return firstGroup(p.Channel, token)
}

func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	if re == nil {
		return "", false
	}
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

package chat

import (
	"fmt"
	"regexp"
	"strings"
)

// Tokenizer selects how message text is split into tokens.
type Tokenizer string

const (
	// SplitWhitespace splits on runs of whitespace other than newlines.
	SplitWhitespace Tokenizer = "whitespace"
	// SplitSpace splits on every single space and keeps empty tokens
	// produced by repeated spaces.
	SplitSpace Tokenizer = "space"
)

var whitespaceRun = regexp.MustCompile(`[ \t\v\f\r]+`)

// ParseTokenizer maps a config value to a Tokenizer. Empty selects fallback.
func ParseTokenizer(raw string, fallback Tokenizer) (Tokenizer, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return fallback, nil
	case "whitespace", "fields", "runs":
		return SplitWhitespace, nil
	case "space", "single":
		return SplitSpace, nil
	default:
		return "", fmt.Errorf("unknown split mode %q; allowed: whitespace, space", raw)
	}
}

// Split tokenizes text. Trailing empty tokens are dropped, a leading empty
// token is kept and the result always has at least one element.
func (t Tokenizer) Split(text string) []string {
	var parts []string
	switch t {
	case SplitSpace:
		parts = strings.Split(text, " ")
	default:
		parts = whitespaceRun.Split(text, -1)
	}
	end := len(parts)
	for end > 1 && parts[end-1] == "" {
		end--
	}
	return parts[:end]
}

package logger

import "strings"

// levelNames maps accepted level spellings to the names written in log lines.
var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// statuses is the closed set of status values; outcomes are the subset an
// invocation can end with and that the audit journal stores.
var (
	statuses = map[string]bool{"ok": true, "fail": true, "skip": true, "retry": true, "denied": true, "cancelled": true}
	outcomes = map[string]bool{"ok": true, "fail": true, "denied": true, "cancelled": true}
)

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if name, ok := levelNames[strings.ToLower(level)]; ok {
		return name
	}
	return strings.ToUpper(level)
}

// normalizeStatus lowercases status and reports whether it is a known value.
func normalizeStatus(status string) (string, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	return status, statuses[status]
}

func normalizeOutcome(outcome string) (string, bool) {
	outcome = strings.ToLower(strings.TrimSpace(outcome))
	if !outcomes[outcome] {
		return "", false
	}
	return outcome, true
}

var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"platform", "user_id", "channel_id", "private",
	"command", "alias", "name", "permission", "required", "users", "async",
	"outcome", "duration_ms", "count", "mode", "audit",
	"action", "attempt", "attempts", "delay_ms",
	"db", "host", "port",
	"err", "error", "error_kind", "cause",
}

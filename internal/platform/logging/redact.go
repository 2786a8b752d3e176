package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// secretFields never reach a sink, whether they appear as attribute keys
// or as struct fields of a logged value such as config.AuthConfig.
var secretFields = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"cookie",
	"api_key",
	"apiKey",
	"access_token",
	"refresh_token",
	"jwt_secret",
	"JWTSecret",
	"dsn",
	"DSN",
}

var (
	jwtPattern    = regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`)
	bearerPattern = regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+`)

	// credentialURLPattern matches connection strings carrying a password,
	// e.g. postgres://qa:pw@db:5432/qa or amqp://guest:guest@mq:5672/.
	credentialURLPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://[^/:@\s]+:[^/@\s]+@`)
)

// RedactOptions returns the masq rules applied to every JSON and text log
// line, followed by extra.
func RedactOptions(extra ...masq.Option) []masq.Option {
	opts := make([]masq.Option, 0, len(secretFields)+4+len(extra))
	for _, name := range secretFields {
		opts = append(opts, masq.WithFieldName(name))
	}

	opts = append(opts,
		masq.WithFieldPrefix("secret"),
		masq.WithRegex(jwtPattern),
		masq.WithRegex(bearerPattern),
		masq.WithRegex(credentialURLPattern),
	)

	return append(opts, extra...)
}

// NewReplaceAttr builds the slog ReplaceAttr hook: secrets are masked and the
// trace level prints as TRACE rather than DEBUG-4.
func NewReplaceAttr(extra ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	redact := masq.New(RedactOptions(extra...)...)

	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && a.Key == slog.LevelKey {
			if level, ok := a.Value.Any().(slog.Level); ok && level <= LevelTrace {
				return slog.String(slog.LevelKey, "TRACE")
			}
		}

		return redact(groups, a)
	}
}

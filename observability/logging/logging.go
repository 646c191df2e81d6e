// Package logging configures the structured JSON log output shared by the
// ledger daemon and its packages. Log lines carry the canonical ledger keys
// (module, operation, outcome) next to the service identity so operation
// rejections can be correlated with the prometheus counters using the same
// labels.
package logging

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

// levelEnv selects the minimum emitted level. The ledger coordinator logs
// every applied operation at debug; production deployments keep the default
// info and only see rejections and lifecycle events.
const levelEnv = "KOPIO_LOG_LEVEL"

// Setup installs the process-wide JSON logger and returns it. The standard
// library logger is bridged onto the same handler so nothing writes unframed
// lines to stderr.
func Setup(service, env string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       levelFromEnv(),
		ReplaceAttr: canonicalKeys,
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	base := slog.New(handler).With(args...)
	slog.SetDefault(base)

	bridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	bridge.SetFlags(0)
	log.SetOutput(bridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

// canonicalKeys maps the slog built-ins onto the field names the rest of the
// ledger tooling expects: timestamp, severity, message.
func canonicalKeys(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		return slog.Attr{Key: "timestamp", Value: attr.Value}
	case slog.LevelKey:
		return slog.String("severity", strings.ToUpper(attr.Value.String()))
	case slog.MessageKey:
		return slog.Attr{Key: "message", Value: attr.Value}
	}
	return attr
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(levelEnv))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

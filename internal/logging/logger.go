package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// DefaultRedactedKeys are attribute keys whose values carry client PII.
var DefaultRedactedKeys = []string{"cpf", "identifier", "birth_date", "client_id"}

// Options tunes New.
type Options struct {
	Level  slog.Level
	Format string    // "text" (default) or "json"
	Output io.Writer // Defaults to os.Stderr
	Redact []string  // Attribute keys to mask
}

// New creates a configured application logger.
// It writes to Stderr (to separate from Stdout chat/JSON-RPC flow).
// It standardizes common keys (e.g., "error" -> "err").
func New(level slog.Level) *slog.Logger {
	return NewWithOptions(Options{Level: level})
}

// NewWithOptions creates a logger with an explicit format and PII redaction.
func NewWithOptions(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	redact := make(map[string]struct{}, len(opts.Redact))
	for _, k := range opts.Redact {
		redact[strings.ToLower(k)] = struct{}{}
	}

	handlerOpts := &slog.HandlerOptions{
		Level: opts.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Standardize 'error' key to 'err'
			if a.Key == "error" {
				a.Key = "err"
			}
			if _, ok := redact[strings.ToLower(a.Key)]; ok {
				a.Value = slog.StringValue(Mask(a.Value.String()))
			}
			return a
		},
	}

	if strings.EqualFold(opts.Format, "json") {
		return slog.New(slog.NewJSONHandler(out, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(out, handlerOpts))
}

// ParseLevel maps a level name to slog.Level, defaulting to Info.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Mask keeps the last two characters of a value.
func Mask(v string) string {
	if len(v) <= 2 {
		return "***"
	}
	return "***" + v[len(v)-2:]
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

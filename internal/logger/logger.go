package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type contextKey string

const (
	tenderIDKey   contextKey = "tender_id"
	dialogueIDKey contextKey = "dialogue_id"
)

// Config - параметры журнала.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// New создает slog.Logger, пишущий в w.
func New(cfg Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Init настраивает глобальный журнал процесса.
func Init(cfg Config) *slog.Logger {
	log := New(cfg, os.Stdout)
	slog.SetDefault(log)
	return log
}

// Discard возвращает журнал, который ничего не пишет. Используется в тестах.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithTender кладет идентификатор тендера в контекст.
func WithTender(ctx context.Context, tenderID string) context.Context {
	return context.WithValue(ctx, tenderIDKey, tenderID)
}

// WithDialogue кладет идентификатор диалога в контекст.
func WithDialogue(ctx context.Context, dialogueID string) context.Context {
	return context.WithValue(ctx, dialogueIDKey, dialogueID)
}

// FromContext дополняет журнал идентификаторами из контекста.
func FromContext(ctx context.Context, log *slog.Logger) *slog.Logger {
	if id, ok := ctx.Value(tenderIDKey).(string); ok && id != "" {
		log = log.With("tender_id", id)
	}
	if id, ok := ctx.Value(dialogueIDKey).(string); ok && id != "" {
		log = log.With("dialogue_id", id)
	}
	return log
}

// Journal возвращает атрибут message_id для фильтрации событий.
func Journal(messageID string) slog.Attr {
	return slog.String("message_id", messageID)
}

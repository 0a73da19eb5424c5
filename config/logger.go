package config

import (
	"log/slog"
	"os"
)

// InitLogger ставит JSON-логгер по умолчанию. Вне production пишет источник
// и локальное время.
func InitLogger(env string) *slog.Logger {
	var handler slog.Handler

	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:       slog.LevelDebug,
			ReplaceAttr: replaceTimeAttr,
			AddSource:   true,
		})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	logger.Info("logger initialized", "env", env)
	return logger
}

func replaceTimeAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && len(groups) == 0 {
		return slog.String("time", a.Value.Time().Local().Format("2006-01-02 15:04:05"))
	}
	return a
}

package logs

import (
	"context"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/reusee/slots/configs"
	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

type Logger = *slog.Logger

// Level is shared by every handler of the scope's Logger, so setting it takes effect immediately.
type Level = *slog.LevelVar

func (Module) Level(
	loader configs.Loader,
) Level {
	level := new(slog.LevelVar)
	if text := configs.First[string](loader, "log_level"); text != "" {
		if err := level.UnmarshalText([]byte(text)); err != nil {
			panic(err)
		}
	}
	return level
}

// Logger fans records out to the writer and, when available, the systemd journal.
// Under a systemd service the writer is skipped since the journal already captures it.
func (Module) Logger(
	writer Writer,
	level Level,
) Logger {
	var handlers []slog.Handler

	var textHandler slog.Handler
	if !underSystemdService() {
		textHandler = slog.NewTextHandler(writer, &slog.HandlerOptions{
			Level: level,
		})
		handlers = append(handlers, textHandler)
	}

	journalHandler, err := newJournalHandler(level)
	if err == nil {
		handlers = append(handlers, journalHandler)
	} else if textHandler != nil {
		record := slog.NewRecord(time.Now(), slog.LevelWarn, "systemd journal unavailable", 0)
		record.Add("error", err)
		_ = textHandler.Handle(context.Background(), record)
	}

	return slog.New(&spanHandler{
		Handler: slogmulti.Fanout(handlers...),
	})
}

func newJournalHandler(level Level) (slog.Handler, error) {
	return slogjournal.NewHandler(&slogjournal.Options{
		Level:        level,
		ReplaceGroup: toJournalKey,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			a.Key = toJournalKey(a.Key)
			return a
		},
	})
}

// toJournalKey maps a key to the journal field charset.
func toJournalKey(str string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' ||
			r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, strings.ToUpper(str))
}

func underSystemdService() bool {
	content, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	parts := strings.Split(strings.TrimSpace(string(content)), ":")
	if len(parts) < 3 {
		return false
	}
	return strings.HasSuffix(path.Dir(parts[2]), ".service")
}

package logs

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/reusee/dscope"
)

func TestHandler(t *testing.T) {
	dscope.New(new(Module)).Call(func(
		logger Logger,
	) {
		logger.Info("test", "hello", "world!")
	})
}

func TestLevel(t *testing.T) {
	buf := new(bytes.Buffer)
	dscope.New(new(Module)).Fork(
		func() Writer {
			return buf
		},
	).Call(func(
		logger Logger,
		level Level,
	) {
		logger.Debug("hidden")
		if buf.Len() != 0 {
			t.Fatalf("got %s", buf.String())
		}
		level.Set(slog.LevelDebug)
		logger.Debug("shown")
		if !strings.Contains(buf.String(), "shown") {
			t.Fatalf("got %s", buf.String())
		}
	})
}

func TestToJournalKey(t *testing.T) {
	if got := toJournalKey("logs.span"); got != "LOGS_SPAN" {
		t.Fatalf("got %s", got)
	}
}

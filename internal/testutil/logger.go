package testutil

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// QuietLogger returns a logger that discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LogBuffer captures text log output at Debug level for assertions.
// Safe for concurrent use.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLogBuffer returns an empty buffer and a logger writing to it.
func NewLogBuffer() (*LogBuffer, *slog.Logger) {
	b := &LogBuffer{}
	return b, slog.New(slog.NewTextHandler(b, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Lines returns the captured records, one per line.
func (b *LogBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := strings.TrimSuffix(b.buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Messages returns the msg attribute of every captured record.
func (b *LogBuffer) Messages() []string {
	var msgs []string
	for _, line := range b.Lines() {
		_, rest, ok := strings.Cut(line, " msg=")
		if !ok {
			continue
		}
		msg := rest
		if strings.HasPrefix(rest, `"`) {
			if end := strings.Index(rest[1:], `"`); end >= 0 {
				msg = rest[1 : end+1]
			}
		} else if i := strings.IndexByte(rest, ' '); i >= 0 {
			msg = rest[:i]
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

package scheduler

import (
	"bytes"
	"sync"

	"go.trai.ch/pake/internal/core/ports"
)

// logWriter forwards complete lines of command output to the logger, each
// prefixed with the target name.
type logWriter struct {
	logger ports.Logger
	prefix string

	mu  sync.Mutex
	buf []byte
}

func newLogWriter(logger ports.Logger, target string) *logWriter {
	return &logWriter{logger: logger, prefix: "[" + target + "] "}
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush logs a trailing partial line.
func (w *logWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *logWriter) emit(line []byte) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	w.logger.Info(w.prefix + string(line))
}

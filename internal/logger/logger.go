package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"log/slog"
)

var (
	levelVar   slog.LevelVar
	loggerMu   sync.RWMutex
	baseLogger *slog.Logger
	ringSink   *Ring
)

func init() {
	levelVar.Set(slog.LevelInfo)
	baseLogger = newLogger(os.Stdout)
}

func newLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar})
	return slog.New(handler)
}

func SetOutput(w io.Writer) {
	loggerMu.Lock()
	baseLogger = newLogger(w)
	loggerMu.Unlock()
}

// SetRing 挂载内存环形缓冲，供 /api/live/logs 查询最近日志。
func SetRing(r *Ring) {
	loggerMu.Lock()
	ringSink = r
	loggerMu.Unlock()
}

func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "info":
		levelVar.Set(slog.LevelInfo)
	case "warn", "warning":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

func activeLogger() *slog.Logger {
	loggerMu.RLock()
	l := baseLogger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if baseLogger == nil {
		baseLogger = newLogger(os.Stdout)
	}
	return baseLogger
}

func record(level, msg string) {
	loggerMu.RLock()
	r := ringSink
	loggerMu.RUnlock()
	if r != nil {
		r.Append(Entry{Time: time.Now(), Level: level, Message: msg})
	}
}

func Debugf(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	activeLogger().Debug(msg)
	record("debug", msg)
}

func Infof(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	activeLogger().Info(msg)
	record("info", msg)
}

func Warnf(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	activeLogger().Warn(msg)
	record("warn", msg)
}

func Errorf(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	activeLogger().Error(msg)
	record("error", msg)
}

func InfoBlock(block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	lines := strings.Split(block, "\n")
	for _, line := range lines {
		Infof("%s", line)
	}
}

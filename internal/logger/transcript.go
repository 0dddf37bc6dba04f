package logger

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// TranscriptLogger 记录求值会话：每行输入、逐行输出与终结结果。
type TranscriptLogger interface {
	Submitted(id string, line string)
	Output(id string, text string)
	Finished(id string, kind string, text string)
}

// StdTranscriptLogger 使用 logrus 输出会话记录。
type StdTranscriptLogger struct {
	logger *logrus.Entry
}

// NewTranscriptLogger 在 entry 上附加 component=transcript；entry 为 nil 时使用全局 logger。
func NewTranscriptLogger(entry *LogEntry) *StdTranscriptLogger {
	if entry == nil {
		entry = logrus.NewEntry(std)
	}
	return &StdTranscriptLogger{logger: entry.WithField("component", "transcript")}
}

func (l *StdTranscriptLogger) Submitted(id string, line string) {
	l.printf(logrus.InfoLevel, id, "-> %s", sanitize(line))
}

func (l *StdTranscriptLogger) Output(id string, text string) {
	l.printf(logrus.DebugLevel, id, "<- out %s", sanitize(text))
}

func (l *StdTranscriptLogger) Finished(id string, kind string, text string) {
	level := logrus.InfoLevel
	if kind == "exception" || kind == "syntax_error" {
		level = logrus.WarnLevel
	}
	l.printf(level, id, "<- %s %s", kind, sanitize(text))
}

// NoopTranscriptLogger 忽略所有记录。
type NoopTranscriptLogger struct{}

func (NoopTranscriptLogger) Submitted(string, string)       {}
func (NoopTranscriptLogger) Output(string, string)          {}
func (NoopTranscriptLogger) Finished(string, string, string) {}

func (l *StdTranscriptLogger) printf(level logrus.Level, id string, format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	if !l.logger.Logger.IsLevelEnabled(level) {
		return
	}
	entry := l.logger
	if id != "" {
		entry = entry.WithField("submission_id", id)
	}
	if caller := findCaller(); caller != "" {
		entry = entry.WithField("caller", caller)
	}
	entry.Log(level, fmt.Sprintf(format, args...))
}

func sanitize(text string) string {
	text = strings.ReplaceAll(text, "\n", `\n`)
	text = strings.ReplaceAll(text, "\r", `\r`)
	return text
}

func findCaller() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.File != "" && !strings.Contains(frame.File, "transcript.go") {
			return fmt.Sprintf("%s:%d", shortenFilePath(frame.File), frame.Line)
		}
		if !more {
			break
		}
	}
	return ""
}

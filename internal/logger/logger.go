// Package logger 基于 logrus，为各组件提供统一格式的日志入口。
// TUI 占用终端期间，日志只写入文件。
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LogEntry 是带字段的日志入口。
type LogEntry = logrus.Entry

// DefaultLogPath 是主日志文件。
const DefaultLogPath = "logs/objconsole.log"

var std = logrus.StandardLogger()

// 超过该大小的日志文件在打开时轮转为 <path>.1。
var maxFileBytes int64 = 8 << 20

// Configure 让全局 logger 使用 PlainFormatter 并记录调用位置。
func Configure() {
	std.SetReportCaller(true)
	std.SetFormatter(PlainFormatter{})
}

// SetupFile 把全局输出切到 logPath（空则 DefaultLogPath），返回文件与实际路径。
func SetupFile(logPath string) (io.Closer, string, error) {
	f, resolved, err := openLogFile(logPath)
	if err != nil {
		return nil, "", err
	}
	std.SetOutput(f)
	return f, resolved, nil
}

// SetupComponentFile 为单个组件创建写入独立文件的 logger，级别跟随全局。
func SetupComponentFile(component, logPath string) (*LogEntry, io.Closer, string, error) {
	f, resolved, err := openLogFile(logPath)
	if err != nil {
		return nil, nil, "", err
	}
	l := logrus.New()
	l.SetReportCaller(true)
	l.SetFormatter(PlainFormatter{})
	l.SetLevel(std.GetLevel())
	l.SetOutput(f)
	return withComponent(logrus.NewEntry(l), component), f, resolved, nil
}

// Named 返回带 component 字段的全局入口。
func Named(component string) *LogEntry {
	return withComponent(logrus.NewEntry(std), component)
}

func withComponent(entry *LogEntry, component string) *LogEntry {
	if component == "" {
		return entry
	}
	return entry.WithField("component", component)
}

// SetLevel 按名称设置全局级别。空名称忽略；无法识别时级别不变。
func SetLevel(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", name, err)
	}
	std.SetLevel(level)
	return nil
}

// PlainFormatter 输出一行：caller [time] [LEVEL] [component] message k=v...
// 含空白或引号的字段值会被加引号，多行求值输入因此仍占一行。
type PlainFormatter struct{}

func (PlainFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if entry == nil {
		return nil, nil
	}
	var b strings.Builder
	if caller := callerOf(entry); caller != "" {
		b.WriteString(caller)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "[%s] [%s] ", entry.Time.UTC().Format(time.RFC3339Nano), strings.ToUpper(entry.Level.String()))
	if component, _ := entry.Data["component"].(string); component != "" {
		fmt.Fprintf(&b, "[%s] ", component)
	}
	b.WriteString(entry.Message)
	writeFields(&b, entry.Data)
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func callerOf(entry *logrus.Entry) string {
	if entry.HasCaller() && entry.Caller != nil {
		return fmt.Sprintf("%s:%d", shortenFilePath(entry.Caller.File), entry.Caller.Line)
	}
	caller, _ := entry.Data["caller"].(string)
	return caller
}

func writeFields(b *strings.Builder, fields logrus.Fields) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != "component" && k != "caller" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		v := fmt.Sprint(fields[k])
		if v == "" || strings.ContainsAny(v, " \t\n\"") {
			v = strconv.Quote(v)
		}
		fmt.Fprintf(b, " %s=%s", k, v)
	}
}

var pathMarkers = []string{"/internal/", "/cmd/"}

func shortenFilePath(file string) string {
	file = filepath.ToSlash(file)
	for _, marker := range pathMarkers {
		if idx := strings.Index(file, marker); idx != -1 {
			return file[idx+1:]
		}
	}
	if _, rest, ok := strings.Cut(file, "/objconsole/"); ok {
		return rest
	}
	return filepath.Base(file)
}

// openLogFile 以追加方式打开日志；过大的旧文件先改名为 .1。
func openLogFile(logPath string) (*os.File, string, error) {
	if logPath == "" {
		logPath = DefaultLogPath
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, "", err
	}
	if info, err := os.Stat(logPath); err == nil && info.Size() > maxFileBytes {
		if err := os.Rename(logPath, logPath+".1"); err != nil {
			return nil, "", fmt.Errorf("rotate %s: %w", logPath, err)
		}
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, "", err
	}
	return f, logPath, nil
}

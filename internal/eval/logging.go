package eval

import (
	"io"

	"objconsole/internal/logger"
)

// DefaultLogPath 是求值 worker 的组件日志。
const DefaultLogPath = "logs/eval.log"

var log = logger.Named("eval")

func newComponentLogger(component, path string) (*logger.LogEntry, io.Closer) {
	if path == "" {
		return logger.Named(component), nil
	}
	entry, closer, _, err := logger.SetupComponentFile(component, path)
	if err != nil {
		log.Warnf("failed to set up %s log file (%s): %v", component, path, err)
		return logger.Named(component), nil
	}
	return entry, closer
}

package tool

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	defaultLogDir  = "log"
	defaultLogFile = "retadi.log"
	DefaultLogger  = log.Default()
)

// InitLogger routes DefaultLogger into a rotating file under log/.
// When toStdout is false the terminal is left alone, which the shell needs
// because it owns the screen.
func InitLogger(toStdout bool) {
	_ = os.MkdirAll(defaultLogDir, 0o755)

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(defaultLogDir, defaultLogFile),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	var out io.Writer = rotator
	if toStdout {
		out = io.MultiWriter(os.Stdout, rotator)
	}
	DefaultLogger.SetOutput(out)
	DefaultLogger.SetTimeFormat("2006-01-02 15:04:05")
	DefaultLogger.SetReportCaller(true)
}

// SetLogMode maps the -log flag onto a level.
func SetLogMode(mode string) {
	switch mode {
	case "", "dev":
		DefaultLogger.SetLevel(log.DebugLevel)
	case "prod":
		DefaultLogger.SetLevel(log.InfoLevel)
	case "none":
		DefaultLogger.SetLevel(log.FatalLevel)
	default:
		DefaultLogger.Warnf("Unknown log mode %q, using debug level", mode)
		DefaultLogger.SetLevel(log.DebugLevel)
	}
}

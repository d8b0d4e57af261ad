package common

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
)

// Loggers lists the package loggers configured by InitLoggers
var Loggers = []string{"rpc", "transport/rpc", "client", "store", "serve", "gateway", "lockmgr"}

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// dlLogger implements the ILogger interface with custom formatting
type dlLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *dlLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *dlLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *dlLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *dlLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *dlLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *dlLogger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

// log formats and writes a log message
func (l *dlLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-13s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger implements dragonboats logger.Factory. Child processes of the
// topology prefix their output with their pid.
func CreateLogger(pkgName string) logger.ILogger {
	prefix := ""
	if os.Getenv(childEnv) != "" {
		prefix = fmt.Sprintf("[%d] ", os.Getpid())
	}
	stdLogger := log.New(os.Stdout, prefix, log.Ldate|log.Ltime)

	return &dlLogger{
		name:   pkgName,
		level:  logger.INFO,
		logger: stdLogger,
	}
}

// childEnv is set in the environment of re-executed server processes
const childEnv = "DLOCK_CHILD"

// ChildEnv returns the environment entry marking a child server process
func ChildEnv() string {
	return childEnv + "=1"
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, fmt.Errorf("%w: log level %q must be one of debug, info, warn, error", ErrInvalidConfig, level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

var factoryOnce sync.Once

// InitLoggers installs the custom logger factory and sets the level of all
// package loggers
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	factoryOnce.Do(func() {
		logger.SetLoggerFactory(CreateLogger)
	})

	for _, name := range Loggers {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}

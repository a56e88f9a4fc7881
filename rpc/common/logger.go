package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// loggerNames are the packages that log through the dragonboat facade
var loggerNames = []string{"rpc", "transport/rpc", "client", "waiter", "daemontest"}

var levelTags = map[logger.LogLevel]string{
	logger.CRITICAL: "CRIT",
	logger.ERROR:    "ERROR",
	logger.WARNING:  "WARN",
	logger.INFO:     "INFO",
	logger.DEBUG:    "DEBUG",
}

// lineLogger writes one line per message: "<time> LEVEL <package> | message".
// Client commands print their results on stdout, so diagnostics go elsewhere.
// The level can change while other goroutines log.
type lineLogger struct {
	pkg   string
	level atomic.Int32
	out   *log.Logger
}

func newLineLogger(pkg string, w io.Writer) *lineLogger {
	l := &lineLogger{pkg: pkg, out: log.New(w, "", log.LstdFlags|log.Lmicroseconds)}
	l.level.Store(int32(logger.INFO))
	return l
}

func (l *lineLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *lineLogger) enabled(level logger.LogLevel) bool {
	return logger.LogLevel(l.level.Load()) >= level
}

func (l *lineLogger) emit(level logger.LogLevel, format string, args []interface{}) {
	if !l.enabled(level) {
		return
	}
	l.out.Printf("%-5s %s | %s", levelTags[level], l.pkg, fmt.Sprintf(format, args...))
}

func (l *lineLogger) Debugf(format string, args ...interface{}) {
	l.emit(logger.DEBUG, format, args)
}

func (l *lineLogger) Infof(format string, args ...interface{}) {
	l.emit(logger.INFO, format, args)
}

func (l *lineLogger) Warningf(format string, args ...interface{}) {
	l.emit(logger.WARNING, format, args)
}

func (l *lineLogger) Errorf(format string, args ...interface{}) {
	l.emit(logger.ERROR, format, args)
}

// Panicf logs at critical level and panics whatever the level
func (l *lineLogger) Panicf(format string, args ...interface{}) {
	l.emit(logger.CRITICAL, format, args)
	panic(fmt.Sprintf(format, args...))
}

// CreateLogger is the dragonboat logger.Factory of goporto, logging to stderr
func CreateLogger(pkgName string) logger.ILogger {
	return newLineLogger(pkgName, os.Stderr)
}

// ParseLogLevel maps the --log-level values onto dragonboat levels
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
	}
	return logger.INFO, fmt.Errorf("invalid log level %q (debug, info, warn, error)", level)
}

// InitLoggers installs CreateLogger and applies level to every goporto package logger
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)
	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}

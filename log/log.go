// Package log provides structured logging with filesystem-based persistence.
package log

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/projector-cli/projector/filesystem"
	"github.com/projector-cli/projector/key"
	"github.com/projector-cli/projector/where"
	"github.com/samber/lo"
	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var enabled bool

const dateLayout = "2006-01-02"

// Setup opens today's log file and applies the configured format and level.
// With logs.write off every call below is a no-op.
func Setup() error {
	enabled = viper.GetBool(key.LogsWrite)
	if !enabled {
		return nil
	}

	dir := where.Logs()
	if err := prune(dir, viper.GetInt(key.LogsKeep), time.Now()); err != nil {
		return fmt.Errorf("prune logs: %w", err)
	}

	path := filepath.Join(dir, time.Now().Format(dateLayout)+".log")
	f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logrus.SetOutput(f)

	if viper.GetBool(key.LogsJson) {
		logrus.SetFormatter(&logrus.JSONFormatter{PrettyPrint: true})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{})
	}

	level, err := logrus.ParseLevel(viper.GetString(key.LogsLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	return nil
}

// prune removes daily log files older than keep days. keep <= 0 keeps everything.
func prune(dir string, keep int, now time.Time) error {
	if keep <= 0 {
		return nil
	}

	infos, err := filesystem.API().ReadDir(dir)
	if err != nil {
		return err
	}

	cutoff := now.AddDate(0, 0, -keep)
	stale := lo.Filter(infos, func(info fs.FileInfo, _ int) bool {
		day, err := time.Parse(dateLayout, strings.TrimSuffix(info.Name(), ".log"))
		return err == nil && !info.IsDir() && day.Before(cutoff)
	})

	var errs []error
	for _, info := range stale {
		errs = append(errs, filesystem.API().Remove(filepath.Join(dir, info.Name())))
	}
	return errors.Join(errs...)
}

// Enabled reports whether log output is written anywhere.
func Enabled() bool {
	return enabled
}

// Logger tags every entry with the component that emitted it.
type Logger struct {
	entry *logrus.Entry
}

// For returns a Logger for the named component.
func For(component string) *Logger {
	return &Logger{entry: logrus.WithField("component", component)}
}

// With returns a copy of l carrying an extra field.
func (l *Logger) With(k string, v any) *Logger {
	return &Logger{entry: l.entry.WithField(k, v)}
}

func (l *Logger) Errorf(format string, args ...any) {
	if enabled {
		l.entry.Errorf(format, args...)
	}
}

func (l *Logger) Warnf(format string, args ...any) {
	if enabled {
		l.entry.Warnf(format, args...)
	}
}

func (l *Logger) Infof(format string, args ...any) {
	if enabled {
		l.entry.Infof(format, args...)
	}
}

func (l *Logger) Debugf(format string, args ...any) {
	if enabled {
		l.entry.Debugf(format, args...)
	}
}

// Tracef is used for raw engine output, which is noisy enough to need its own level.
func (l *Logger) Tracef(format string, args ...any) {
	if enabled {
		l.entry.Tracef(format, args...)
	}
}

func Error(args ...any) {
	if enabled {
		logrus.Error(args...)
	}
}
func Errorf(format string, args ...any) {
	if enabled {
		logrus.Errorf(format, args...)
	}
}
func Warnf(format string, args ...any) {
	if enabled {
		logrus.Warnf(format, args...)
	}
}
func Infof(format string, args ...any) {
	if enabled {
		logrus.Infof(format, args...)
	}
}
func Debugf(format string, args ...any) {
	if enabled {
		logrus.Debugf(format, args...)
	}
}

package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Config controls the process-wide logger.
type Config struct {
	Level   string      `mapstructure:"level" yaml:"level"`
	Pattern string      `mapstructure:"pattern" yaml:"pattern"`
	Time    string      `mapstructure:"time" yaml:"time"`
	File    *FileConfig `mapstructure:"file" yaml:"file,omitempty"`
}

// FileConfig adds a rotated file appender alongside stdout.
type FileConfig struct {
	Filename   string `mapstructure:"filename" yaml:"filename"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

func defaultConfig() Config {
	return Config{
		Level:   "info",
		Pattern: "%time [%level] %msg %field\n",
		Time:    "2006-01-02 15:04:05.000",
	}
}

type logrusAdapter struct {
	entry *logrus.Entry
}

func newAdapter(cfg Config) *logrusAdapter {
	def := defaultConfig()
	if cfg.Pattern == "" {
		cfg.Pattern = def.Pattern
	}
	if cfg.Time == "" {
		cfg.Time = def.Time
	}

	l := logrus.New()
	l.SetFormatter(&formatter{pattern: cfg.Pattern, time: cfg.Time})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	w := NewMultiWriter().Add(os.Stdout)
	if cfg.File != nil {
		w = w.AddFileAppender(*cfg.File)
	}
	l.SetOutput(w)

	return &logrusAdapter{entry: logrus.NewEntry(l)}
}

func (l *logrusAdapter) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *logrusAdapter) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }

func (l *logrusAdapter) Info(args ...interface{})                 { l.entry.Info(args...) }
func (l *logrusAdapter) Infof(format string, args ...interface{}) { l.entry.Infof(format, args...) }

func (l *logrusAdapter) Warn(args ...interface{})                 { l.entry.Warn(args...) }
func (l *logrusAdapter) Warnf(format string, args ...interface{}) { l.entry.Warnf(format, args...) }

func (l *logrusAdapter) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *logrusAdapter) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusAdapter) Fatal(args ...interface{})                 { l.entry.Fatal(args...) }
func (l *logrusAdapter) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

func (l *logrusAdapter) WithField(field string, value interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithField(field, value)}
}

func (l *logrusAdapter) WithFields(fields map[string]interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithFields(fields)}
}

func (l *logrusAdapter) WithError(err error) Logger {
	return &logrusAdapter{entry: l.entry.WithError(err)}
}

func (l *logrusAdapter) IsDebugEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}

func (l *logrusAdapter) IsInfoEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.InfoLevel)
}

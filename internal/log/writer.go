package log

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// MultiWriter fans one log stream out to several sinks. Unlike
// io.MultiWriter it keeps writing to the remaining sinks when one fails,
// returning the last error; a full disk must not silence stdout.
type MultiWriter struct {
	writers []io.Writer
}

func NewMultiWriter() *MultiWriter {
	return &MultiWriter{writers: make([]io.Writer, 0)}
}

func (m *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range m.writers {
		if _, e := w.Write(p); e != nil {
			err = e
		}
	}
	return len(p), err
}

func (m *MultiWriter) Add(writer io.Writer) *MultiWriter {
	m.writers = append(m.writers, writer)
	return m
}

// AddFileAppender adds a size-rotated file sink.
func (m *MultiWriter) AddFileAppender(cfg FileConfig) *MultiWriter {
	m.writers = append(m.writers, &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,    // megabytes
		MaxBackups: cfg.MaxBackups, // number of backups
		MaxAge:     cfg.MaxAge,     // days
		Compress:   cfg.Compress,   // compress the backups
	})
	return m
}

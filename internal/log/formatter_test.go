package log

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatterRendersPattern(t *testing.T) {
	f := &formatter{pattern: "%time [%level] %msg %field\n", time: "2006-01-02"}

	entry := &logrus.Entry{
		Time:    time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "graph started",
		Data:    logrus.Fields{"graph": "demo", "tasks": 3},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14 [info] graph started graph=demo,tasks=3\n", string(out))
}

func TestFormatterEmptyFields(t *testing.T) {
	f := &formatter{pattern: "%level %msg%field", time: time.RFC3339}

	entry := &logrus.Entry{
		Time:    time.Now(),
		Level:   logrus.WarnLevel,
		Message: "slow consumer",
		Data:    logrus.Fields{},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "warning slow consumer", string(out))
}

func TestMultiWriterKeepsWritingPastFailure(t *testing.T) {
	var good captureWriter
	m := NewMultiWriter().Add(failWriter{}).Add(&good)

	n, err := m.Write([]byte("hello"))
	require.Error(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", good.String())
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, assert.AnError }

type captureWriter struct{ data []byte }

func (w *captureWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *captureWriter) String() string { return string(w.data) }

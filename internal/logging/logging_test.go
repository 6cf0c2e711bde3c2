package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"trace", logrus.TraceLevel},
		{"bogus", logrus.InfoLevel},
	}
	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			l, closer, err := New(tc.level, "", false)
			require.NoError(t, err)
			assert.Equal(t, tc.want, l.GetLevel())
			assert.NoError(t, closer())
		})
	}
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gudablas.log")
	l, closer, err := New("info", path, false)
	require.NoError(t, err)
	defer closer()

	l.WithField("function", "asum").Info("checked")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "function=asum")
}

func TestInitReplacesShared(t *testing.T) {
	t.Cleanup(func() { Close() })
	require.NoError(t, Init("error", "", false))
	assert.Equal(t, logrus.ErrorLevel, Get().GetLevel())
}

func TestInitClosesPreviousFile(t *testing.T) {
	t.Cleanup(func() { Close() })
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")

	require.NoError(t, Init("info", first, false))
	old := Get()
	old.Info("before")

	require.NoError(t, Init("info", filepath.Join(dir, "second.log"), false))
	out, ok := old.Out.(*os.File)
	require.True(t, ok, "file logger should write to the file directly")
	_, err := out.Write([]byte("after\n"))
	assert.ErrorIs(t, err, os.ErrClosed)

	Get().Info("current")
	data, err := os.ReadFile(filepath.Join(dir, "second.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "current")

	require.NoError(t, Close())
	data, err = os.ReadFile(first)
	require.NoError(t, err)
	assert.Contains(t, string(data), "before")
	assert.NotContains(t, string(data), "after")
}

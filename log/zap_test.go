package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	t.Cleanup(func() {
		Logger, Sugar = nopLogger()
	})

	file := filepath.Join(t.TempDir(), "ipdns.log")
	err := Init(Config{
		File:       file,
		Level:      -1,
		MaxAge:     1,
		MaxSize:    1,
		MaxBackups: 1,
		JsonFormat: true,
	})
	require.NoError(t, err)

	Sugar.Infow("zap log", "success", true)
	Sugar.Debugf("zap log success %t %d", true, 1)
	Sync()

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"M":"zap log"`)
	assert.Contains(t, string(raw), `"success":true`)
	assert.Contains(t, string(raw), "zap log success true 1")
}

func TestInitWithoutSink(t *testing.T) {
	assert.EqualError(t, Init(Config{}), "write syncer needed")
}

func TestLevel(t *testing.T) {
	tests := []struct {
		name string
		in   int8
		want zapcore.Level
	}{
		{name: "debug", in: -1, want: zapcore.DebugLevel},
		{name: "info", in: 0, want: zapcore.InfoLevel},
		{name: "error", in: 2, want: zapcore.ErrorLevel},
		{name: "fatal falls back to info", in: 5, want: zapcore.InfoLevel},
		{name: "out of range", in: -7, want: zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, level(tt.in))
		})
	}
}

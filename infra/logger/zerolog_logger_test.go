package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("dispatch", &buf).With("carrier", "DR-001")
	l.Infof("package %s delivered", "PKG-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dispatch", entry["component"])
	assert.Equal(t, "DR-001", entry["carrier"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "package PKG-1 delivered", entry["message"])
}

func TestSetLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
	require.NoError(t, SetLevel("warn"))

	var buf bytes.Buffer
	l := NewWithWriter("test", &buf)
	l.Infof("hidden")
	l.Warnf("shown")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "shown")

	assert.Error(t, SetLevel("loud"))
}

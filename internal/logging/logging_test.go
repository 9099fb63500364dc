package logging

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	saved := baseLogger
	savedLevel := GetLevel()
	baseLogger = log.New(&buf, "", 0)
	t.Cleanup(func() {
		baseLogger = saved
		SetLevel(levelString(savedLevel))
	})
	return &buf
}

func levelString(l Level) string {
	for name, v := range levelNames {
		if v == l && name != "warning" {
			return name
		}
	}
	return "info"
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	assert.True(t, SetLevel("warn"))

	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown 2")
}

func TestUnknownLevelIgnored(t *testing.T) {
	capture(t)
	SetLevel("debug")
	assert.False(t, SetLevel("loud"))
	assert.Equal(t, LevelDebug, GetLevel())
}

func TestPercentInPlainMessage(t *testing.T) {
	buf := capture(t)
	SetLevel("info")

	msg := "[tokyo] 45.0% | 12.3MB | 98.1 Mbps"
	Infof(msg)

	out := buf.String()
	assert.Contains(t, out, "45.0% | 12.3MB")
	assert.NotContains(t, out, "MISSING")
}

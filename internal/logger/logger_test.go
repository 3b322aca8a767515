package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New("info", "xml")
	require.Error(t, err)

	_, err = New("loud", "json")
	require.Error(t, err)
}

func TestNewBuildsLoggers(t *testing.T) {
	for _, format := range []string{"", "json", "console"} {
		l, err := New("debug", format)
		require.NoError(t, err, format)
		assert.NotNil(t, l)
	}
}

func TestFieldsCarryEvent(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	l.WarnObj("feed fetch failed", "fetch_error", map[string]any{"provider": "NPR"})

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "fetch_error", ctx["event"])
	assert.Equal(t, "NPR", ctx["provider"])
	assert.Equal(t, "feed fetch failed", entries[0].Message)
}

func TestFromZapNil(t *testing.T) {
	assert.IsType(t, NopLogger{}, FromZap(nil))
}

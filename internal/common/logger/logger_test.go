package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestObservedLogger_Fields(t *testing.T) {
	log, logs := NewObservedLogger(zapcore.DebugLevel)

	log.WithFields(map[string]interface{}{"registrationId": "10003100030001520190422074511"}).
		WithError(errors.New("db down")).
		WithStack().
		Error("intake failed", map[string]interface{}{"errorCode": "RPR_WIS_UNKNOWN_EXCEPTION"})

	entries := logs.FilterMessage("intake failed").All()
	require.Len(t, entries, 1)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "10003100030001520190422074511", ctx["registrationId"])
	assert.Equal(t, "db down", ctx["error"])
	assert.Equal(t, "RPR_WIS_UNKNOWN_EXCEPTION", ctx["errorCode"])
	assert.NotEmpty(t, ctx["stacktrace"])
}

func TestNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.Info("ignored", nil)
		log.WithFields(nil).Debug("ignored", map[string]interface{}{"k": 1})
	})
}

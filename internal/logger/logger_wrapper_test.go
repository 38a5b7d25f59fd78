package logger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/leandrodaf/notetrack/internal/logger"
	"github.com/leandrodaf/notetrack/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFieldsAreForwarded(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.NewFromZap(zap.New(core))

	log.Info("note event",
		log.Field().Int("note", 60),
		log.Field().Uint8("velocity", 90),
		log.Field().String("name", "C4"),
		log.Field().Duration("at", 20*time.Millisecond),
		log.Field().Error("error", errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, int64(60), ctx["note"])
	assert.Equal(t, uint8(90), ctx["velocity"])
	assert.Equal(t, "C4", ctx["name"])
	assert.Equal(t, 20*time.Millisecond, ctx["at"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestNilErrorFieldIsSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.NewFromZap(zap.New(core))

	log.Warn("no error", log.Field().Error("error", nil))

	require.Equal(t, 1, logs.Len())
	assert.Empty(t, logs.All()[0].Context)
}

func TestSetLevelFilters(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.NewFromZap(zap.New(core))

	log.SetLevel(contracts.WarnLevel)
	log.Debug("dropped")
	log.Info("dropped")
	log.Warn("kept")
	log.Error("kept")

	assert.Equal(t, 2, logs.Len())

	log.SetLevel(contracts.DebugLevel)
	log.Debug("kept")
	assert.Equal(t, 3, logs.Len())
}

func TestNopLoggerDiscards(t *testing.T) {
	log := logger.NewNopLogger()
	assert.NotPanics(t, func() {
		log.SetLevel(contracts.DebugLevel)
		log.Debug("x", log.Field().Bool("b", true))
		log.Error("y")
	})
}

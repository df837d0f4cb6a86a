package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBadgerLoggerAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	adapter := &badgerLoggerAdapter{logger: zap.New(core)}

	adapter.Errorf("compaction failed: %v\n", "disk full")
	adapter.Warningf("value log GC: nothing to collect\n")
	adapter.Infof("replaying value log, offset %d\n", 512)
	adapter.Debugf("flushing memtable %d\n", 3)

	entries := logs.All()
	require.Len(t, entries, 4)

	// Formatted, newline-trimmed, at the matching zap level
	assert.Equal(t, "compaction failed: disk full", entries[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "replaying value log, offset 512", entries[2].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[2].Level)
	assert.Equal(t, zapcore.DebugLevel, entries[3].Level)
}

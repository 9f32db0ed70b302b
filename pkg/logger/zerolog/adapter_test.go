package zerolog

import (
	"bytes"
	"testing"

	"github.com/raykavin/alphabot/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestAdapter_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	zl, err := NewWithWriter(&buf, "debug", "2006-01-02", false, true)
	require.NoError(t, err)

	log := NewAdapter(zl)
	log.WithFields(map[string]any{"author": 42}).Infof("admitted %d", 2)

	require.Contains(t, buf.String(), `"author":42`)
	require.Contains(t, buf.String(), "admitted 2")
}

func TestLevelConversion(t *testing.T) {
	for _, level := range []logger.Level{logger.TraceLevel, logger.InfoLevel, logger.ErrorLevel, logger.PanicLevel} {
		require.Equal(t, level, toLevel(toZerologLevel(level)))
	}
	require.Equal(t, logger.NoLevel, toLevel(99))
}

func TestFormatCaller(t *testing.T) {
	require.Empty(t, formatCaller(nil))
	require.Contains(t, formatCaller("/src/pkg/router/router.go:123"), "router.go")
}

func TestLevelParsing(t *testing.T) {
	require.Equal(t, logger.WarnLevel, logger.ParseLevel("WARN"))
	require.Equal(t, logger.NoLevel, logger.ParseLevel("verbose"))
	require.Equal(t, "error", logger.ErrorLevel.String())
}

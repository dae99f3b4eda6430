package utils

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitLogger_ErrorLoggerKeepsWarnings(t *testing.T) {
	InitLogger("info")
	var buf bytes.Buffer
	ErrorLogger.SetOutput(&buf)
	t.Cleanup(func() { ErrorLogger.SetOutput(os.Stderr) })

	ErrorLogger.Warn("cache degraded")
	ErrorLogger.Error("request failed")
	ErrorLogger.Info("not for the error log")

	assert.Contains(t, buf.String(), "cache degraded")
	assert.Contains(t, buf.String(), "request failed")
	assert.NotContains(t, buf.String(), "not for the error log")
}

func TestInitLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	InitLogger("chatty")
	assert.Equal(t, "info", InfoLogger.GetLevel().String())
}

package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONWithFallbackLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("nonsense", "json", &buf)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	LogError(logger, "sync", "drain", map[string]int{"pending": 3}, errors.New("gateway down"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "gateway down", entry["msg"])
	assert.Equal(t, "sync", entry["component"])
	assert.Equal(t, "drain", entry["operation"])
	assert.Equal(t, "error", entry["level"])
}

func TestLogError_IgnoresNil(t *testing.T) {
	var buf bytes.Buffer
	logger := New("debug", "text", &buf)
	LogError(logger, "x", "y", nil, nil)
	LogError(nil, "x", "y", nil, errors.New("boom"))
	assert.Zero(t, buf.Len())
}

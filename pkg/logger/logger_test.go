package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValuesAreEmittedAsFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	Info("prepared user operation", "sender", "0xabc", "nonce", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "prepared user operation", entry["message"])
	assert.Equal(t, "0xabc", entry["sender"])
	assert.Equal(t, float64(3), entry["nonce"])
}

func TestErrorAttachesErr(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	Error("bundler rejected operation", errors.New("AA21 didn't pay prefund"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "AA21 didn't pay prefund", entry["error"])
}

func TestOddKeyValuesDoNotPanic(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	assert.NotPanics(t, func() { Warn("dangling key", "orphan") })
	assert.Contains(t, buf.String(), "orphan")
}

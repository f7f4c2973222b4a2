package log

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Defaults(t *testing.T) {
	err := Init(Config{Level: "bogus", Format: "text"})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, GetLogger().GetLevel())
}

func TestInit_JSONFormat(t *testing.T) {
	require.NoError(t, Init(Config{Level: "debug", Format: "json"}))

	var buf bytes.Buffer
	GetLogger().SetOutput(&buf)

	WithFields(logrus.Fields{"ticket_id": "t-1", "product_id": 42}).Info("ticket created")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ticket created", entry["msg"])
	assert.Equal(t, "t-1", entry["ticket_id"])
	assert.EqualValues(t, 42, entry["product_id"])
}

func TestInit_FileOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		Filename: filepath.Join(dir, "logs", "flashsale.log"),
		MaxSize:  1,
	}
	require.NoError(t, Init(cfg))

	Info("rotation target ready")
	assert.DirExists(t, filepath.Join(dir, "logs"))
}

func TestInit_DefaultsToJSON(t *testing.T) {
	require.NoError(t, Init(Config{}))

	var buf bytes.Buffer
	GetLogger().SetOutput(&buf)

	Info("startup")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "startup", entry["msg"])
	assert.Contains(t, entry, "time")
}

func TestGetLogger_Uninitialized(t *testing.T) {
	logger = nil
	assert.NotNil(t, GetLogger())
}

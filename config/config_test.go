package config

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

const defaultConfig = `
buffer_size:		4096
log_level:		info
listen_address:		:3690
`

func checkValue(t *testing.T, fieldname string, val string, expected string) {
	if val != expected {
		t.Fatalf("Error parsing %s, expected '%v' got '%v'", fieldname, expected, val)
	}
}

func loadOrFail(t *testing.T, content string) *Config {
	cfg, err := LoadConfigString([]byte(content))
	if err != nil {
		t.Fatalf("Error loading config: %v", err)
	}
	return cfg
}

func TestValidConfig(t *testing.T) {
	cfg := loadOrFail(t, defaultConfig)
	assert.Equal(t, DefaultBufferSize, cfg.BufferSize)
	checkValue(t, "LogLevel", cfg.LogLevel, "info")
	checkValue(t, "ListenAddress", cfg.ListenAddress, ":3690")
	assert.False(t, cfg.AllowTxnCopySource)
}

func TestEmptyConfig(t *testing.T) {
	cfg := loadOrFail(t, "")
	assert.Equal(t, DefaultBufferSize, cfg.BufferSize)
	checkValue(t, "LogLevel", cfg.LogLevel, DefaultLogLevel)
	checkValue(t, "ListenAddress", cfg.ListenAddress, DefaultListenAddress)
	assert.Equal(t, logrus.InfoLevel, cfg.ParsedLogLevel)
}

func TestOverrides(t *testing.T) {
	const config = `
buffer_size:	8192
log_level:	debug
case_insensitive:	true
allow_txn_copy_source:	true
`
	cfg := loadOrFail(t, config)
	assert.Equal(t, 8192, cfg.BufferSize)
	assert.Equal(t, logrus.DebugLevel, cfg.ParsedLogLevel)
	assert.True(t, cfg.CaseInsensitive)
	assert.True(t, cfg.AllowTxnCopySource)
}

func TestBadLogLevel(t *testing.T) {
	_, err := LoadConfigString([]byte("log_level: chatty"))
	assert.Error(t, err)
}

func TestBadBufferSize(t *testing.T) {
	_, err := LoadConfigString([]byte("buffer_size: -1"))
	assert.Error(t, err)
}

func TestBadYaml(t *testing.T) {
	_, err := LoadConfigString([]byte("buffer_size: [nonsense"))
	assert.Error(t, err)
}

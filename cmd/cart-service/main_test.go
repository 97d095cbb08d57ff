package main

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.InfoLevel, parseLevel(""))
	assert.Equal(t, log.DebugLevel, parseLevel("debug"))
	assert.Equal(t, log.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, log.InfoLevel, parseLevel("loud"))
}

func TestSetupLogger(t *testing.T) {
	prev := log.GetLevel()
	t.Cleanup(func() { log.SetLevel(prev) })

	setupLogger("error")
	assert.Equal(t, log.ErrorLevel, log.GetLevel())
}

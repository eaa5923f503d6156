package scheduler

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestGocronLogger(t *testing.T) {
	var buf bytes.Buffer
	parent := log.NewWithOptions(&buf, log.Options{Level: log.InfoLevel})
	l := newGocronLogger(parent)

	l.Info("job started", "id", "attachment_audit")
	assert.Empty(t, buf.String())

	l.Warn("job rescheduled", "id", "attachment_audit")
	assert.Contains(t, buf.String(), "jobs")
	assert.Contains(t, buf.String(), "job rescheduled")
	assert.Contains(t, buf.String(), "attachment_audit")
}

func TestGocronLogger_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newGocronLogger(log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel}))

	l.Info("job started")
	assert.Contains(t, buf.String(), "job started")
}

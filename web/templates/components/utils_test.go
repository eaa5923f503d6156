package components

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatFileSize(0))
	assert.Equal(t, "2.0 kB", FormatFileSize(2000))
	assert.Equal(t, "0 B", FormatFileSize(-5))
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "1,234", FormatCount(1234))
}

func TestFormatRelativeTime(t *testing.T) {
	assert.Empty(t, FormatRelativeTime(time.Time{}))
	assert.Equal(t, "2 hours ago", FormatRelativeTime(time.Now().Add(-2*time.Hour)))
}

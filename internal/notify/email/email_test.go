package email

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/bjaergning/rapport/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_MissingCredentials(t *testing.T) {
	tests := []struct {
		name   string
		config *config.EmailConfig
	}{
		{
			name:   "missing sender",
			config: &config.EmailConfig{SMTPHost: "relay.invalid", SMTPPort: 465, Password: "secret"},
		},
		{
			name:   "missing password",
			config: &config.EmailConfig{SMTPHost: "relay.invalid", SMTPPort: 465, Sender: "rapport@example.com"},
		},
		{
			name:   "nil config",
			config: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.config)
			assert.False(t, m.Enabled())
			// relay.invalid never resolves, so reaching the network would fail loudly and slowly
			assert.False(t, m.Send([]byte("%PDF-1.3"), "modtager@example.com"))
		})
	}
}

func TestSend_EmptyRecipient(t *testing.T) {
	m := New(&config.EmailConfig{SMTPHost: "relay.invalid", SMTPPort: 465, Sender: "a@example.com", Password: "x"})
	assert.False(t, m.Send([]byte("%PDF-1.3"), ""))
}

func TestSend_RelayUnreachable(t *testing.T) {
	// grab a free port and close it again so nothing is listening
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	m := New(&config.EmailConfig{
		SMTPHost:       "127.0.0.1",
		SMTPPort:       port,
		Sender:         "rapport@example.com",
		Password:       "secret",
		ConnectTimeout: time.Second,
		SendTimeout:    time.Second,
	})
	assert.False(t, m.Send([]byte("%PDF-1.3"), "modtager@example.com"))
}

func TestBuildMessage(t *testing.T) {
	m := New(&config.EmailConfig{
		Sender:   "rapport@example.com",
		Password: "secret",
		FromName: "Vagten",
	})

	msg := m.buildMessage([]byte("%PDF-1.3 fake"), "modtager@example.com")
	require.NoError(t, msg.GetError())

	raw := msg.GetMessage()
	assert.Contains(t, raw, "modtager@example.com")
	assert.Contains(t, raw, "rapport@example.com")
	assert.Contains(t, raw, AttachmentName)
	assert.Contains(t, raw, "application/pdf")
	assert.True(t, strings.Contains(raw, "Subject:"))
}

package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	msg := string(buildMessage("no-reply@conectalagoa.com.br", "ana@example.com", "Olá", "<p>body</p>", now))

	head, body, found := strings.Cut(msg, "\r\n\r\n")
	assert.True(t, found)
	assert.Equal(t, "<p>body</p>", body)
	assert.Contains(t, head, "From: no-reply@conectalagoa.com.br\r\n")
	assert.Contains(t, head, "To: ana@example.com\r\n")
	assert.Contains(t, head, "Subject: =?utf-8?q?Ol=C3=A1?=\r\n")
	assert.Contains(t, head, "Content-Type: text/html; charset=\"utf-8\"")
}

func TestBuildMessage_StripsHeaderInjection(t *testing.T) {
	msg := string(buildMessage("a@example.com", "victim@example.com\r\nBcc: everyone@example.com", "hi", "", time.Now()))
	assert.NotContains(t, msg, "\r\nBcc:")
	assert.Equal(t, "abc", sanitizeHeader("a\r\nb\nc"))
}

func TestS3StoreURL(t *testing.T) {
	s := &S3Store{publicBaseURL: "https://cdn.example.com"}
	assert.Equal(t, "https://cdn.example.com/companies/logos/x.png", s.URL("companies/logos/x.png"))

	assert.Empty(t, (&S3Store{}).URL("companies/logos/x.png"))
}

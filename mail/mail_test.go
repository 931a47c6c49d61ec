// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import (
	"os"
	"path"
	"testing"

	"github.com/AkshayRane05/Phishing-Detection-Tool/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadMessage(t *testing.T, name string, uid uint32) *domain.RawMessage {
	raw, err := os.ReadFile(path.Join("testdata", name))
	require.NoError(t, err)

	return &domain.RawMessage{Uid: uid, Raw: raw}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		sender    string
		subject   string
		bodyPart  string
		multipart bool
		urls      []string
	}{
		{
			"plain.msg",
			"\"Account Team\" <support@secure-bank.example>",
			"Action required",
			"your account will be suspended",
			false,
			[]string{"http://evil.example/login?session=9f2"},
		},
		{
			"multipart.msg",
			"billing@invoice-portal.example",
			"Invoice overdue",
			"Your invoice is overdue",
			true,
			[]string{"http://evil.example/pay"},
		},
		{
			"attachment.msg",
			"hr@corp.example",
			"Payroll update",
			"updated payroll portal",
			true,
			[]string{"http://evil.example/payroll"},
		},
		{
			"base64.msg",
			"security@mailer.example",
			"Dringend: Konto gesperrt",
			"Your account was suspended",
			false,
			[]string{"http://evil.example/verify?id=44"},
		},
		{
			"quotedprintable.msg",
			"news@cafe.example",
			"Weekly menu",
			"Café menu for the week",
			false,
			nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(loadMessage(t, tc.name, 77))

			require.NoError(t, err)
			assert.Equal(t, uint32(77), parsed.Uid)
			assert.Equal(t, tc.sender, parsed.Sender)
			assert.Equal(t, tc.subject, parsed.Subject)
			assert.Contains(t, parsed.Body, tc.bodyPart)
			assert.Equal(t, tc.multipart, parsed.Multipart)
			assert.Equal(t, tc.urls, parsed.URLs)
		})
	}
}

func TestParseSkipsAttachmentText(t *testing.T) {
	parsed, err := Parse(loadMessage(t, "attachment.msg", 1))

	require.NoError(t, err)
	assert.NotContains(t, parsed.Body, "attachment text")
}

func TestParseBrokenMessage(t *testing.T) {
	parsed, err := Parse(loadMessage(t, "broken.msg", 1))

	assert.Error(t, err)
	assert.Nil(t, parsed)
}

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"none", "no links in here", nil},
		{"single", "go to http://evil.example/login now", []string{"http://evil.example/login"}},
		{"https with query", "https://evil.example/reset?token=abc123&u=4", []string{"https://evil.example/reset?token=abc123&u=4"}},
		{"multiple", "http://a.test/x and https://b.test/y", []string{"http://a.test/x", "https://b.test/y"}},
		{"stops at whitespace", "http://a.test/x\ttrailing", []string{"http://a.test/x"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractURLs(tc.text))
		})
	}
}

func TestShortSubject(t *testing.T) {
	assert.Equal(t, "short", ShortSubject("short"))
	assert.Equal(t, "aaaaaaaaaabbbbbbbbbbcccccccccc...", ShortSubject("aaaaaaaaaabbbbbbbbbbccccccccccdddddddddd"))
}

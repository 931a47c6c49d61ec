// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		expected Label
	}{
		{"zero", 0, LabelLegitimate},
		{"low", 0.12, LabelLegitimate},
		{"boundary is legitimate", 0.5, LabelLegitimate},
		{"just above boundary", 0.500001, LabelPhishing},
		{"high", 0.93, LabelPhishing},
		{"one", 1, LabelPhishing},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			classification := Classify(tc.score)

			assert.Equal(t, tc.expected, classification.Label)
			assert.Equal(t, tc.score, classification.Score)
			assert.Equal(t, tc.expected == LabelPhishing, classification.IsPhishing())
		})
	}
}

func TestClassificationFormat(t *testing.T) {
	assert.Equal(t, "Phishing (Confidence: 93.40%)", Classify(0.934).Format())
	assert.Equal(t, "Legitimate (Confidence: 88.00%)", Classify(0.12).Format())
	assert.Equal(t, "Legitimate (Confidence: 50.00%)", Classify(0.5).Format())
}

func TestNewEmailEvent(t *testing.T) {
	email := &PhishingEmail{
		Id:         42,
		Uid:        "1017",
		Sender:     "attacker@evil.example",
		Subject:    "Your account is suspended",
		Body:       "account suspended click",
		Confidence: 0.93,
		Status:     StatusUnverified,
	}
	urls := []*EmailURL{
		{Id: 1, EmailId: 42, URL: "http://evil.example/login", Status: URLPhishing},
		{Id: 2, EmailId: 42, URL: "http://evil.example/reset", Status: URLError},
	}

	event := NewEmailEvent(email, urls)

	assert.Equal(t, EventNewEmail, event.Type)
	assert.Equal(t, int64(42), event.Email.Id)
	assert.Equal(t, "attacker@evil.example", event.Email.Sender)
	assert.Equal(t, "Your account is suspended", event.Email.Subject)
	assert.Equal(t, 0.93, event.Email.Confidence)
	assert.Equal(t, []string{"http://evil.example/login", "http://evil.example/reset"}, event.Email.URLs)
}

func TestNewEmailEventWithoutUrls(t *testing.T) {
	event := NewEmailEvent(&PhishingEmail{Id: 7}, nil)

	assert.Equal(t, EventNewEmail, event.Type)
	assert.Empty(t, event.Email.URLs)
	assert.NotNil(t, event.Email.URLs)
}

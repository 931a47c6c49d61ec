// SPDX-License-Identifier: GPL-3.0-or-later
package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuarantine(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expected      *configuration
		expectedError error
	}{
		{"ok", "Spam", &configuration{Quarantine: true, SpamFolder: "Spam"}, nil},
		{"lenvalidation", "", nil, fmt.Errorf("SpamFolder cannot be empty")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &configuration{}
			err := Quarantine(tc.input)(cfg)
			if tc.expected != nil {
				assert.Equal(t, tc.expected, cfg)
				assert.Nil(t, err)
			} else {
				assert.Equal(t, tc.expectedError, err)
			}
		})
	}
}

func TestAlerts(t *testing.T) {
	alerter := &fakeAlerter{}

	cfg := &configuration{}
	err := Alerts(alerter)(cfg)

	assert.Nil(t, err)
	assert.Equal(t, &configuration{Alerter: alerter}, cfg)

	err = Alerts(nil)(&configuration{})
	assert.Equal(t, fmt.Errorf("Alerter cannot be nil"), err)
}

func TestPollInterval(t *testing.T) {
	tests := []struct {
		name          string
		input         time.Duration
		expected      *configuration
		expectedError error
	}{
		{"ok", 30 * time.Second, &configuration{PollInterval: 30 * time.Second}, nil},
		{"zero", 0, nil, fmt.Errorf("PollInterval must be positive")},
		{"negative", -time.Second, nil, fmt.Errorf("PollInterval must be positive")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &configuration{}
			err := PollInterval(tc.input)(cfg)
			if tc.expected != nil {
				assert.Equal(t, tc.expected, cfg)
				assert.Nil(t, err)
			} else {
				assert.Equal(t, tc.expectedError, err)
			}
		})
	}
}

func TestReconnectBackoff(t *testing.T) {
	tests := []struct {
		name          string
		input         time.Duration
		expected      *configuration
		expectedError error
	}{
		{"ok", time.Second, &configuration{ReconnectBackoff: time.Second}, nil},
		{"zero", 0, nil, fmt.Errorf("ReconnectBackoff must be positive")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &configuration{}
			err := ReconnectBackoff(tc.input)(cfg)
			if tc.expected != nil {
				assert.Equal(t, tc.expected, cfg)
				assert.Nil(t, err)
			} else {
				assert.Equal(t, tc.expectedError, err)
			}
		})
	}
}

func TestConcurrency(t *testing.T) {
	tests := []struct {
		name          string
		input         int
		expected      *configuration
		expectedError error
	}{
		{"ok", 4, &configuration{Concurrency: 4}, nil},
		{"zero", 0, nil, fmt.Errorf("Concurrency must be at least 1")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &configuration{}
			err := Concurrency(tc.input)(cfg)
			if tc.expected != nil {
				assert.Equal(t, tc.expected, cfg)
				assert.Nil(t, err)
			} else {
				assert.Equal(t, tc.expectedError, err)
			}
		})
	}
}

func TestDefaultConfiguration(t *testing.T) {
	cfg := defaultConfiguration()

	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.ReconnectBackoff)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.False(t, cfg.Quarantine)
	assert.Nil(t, cfg.Alerter)
}

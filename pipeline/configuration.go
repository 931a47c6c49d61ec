// SPDX-License-Identifier: GPL-3.0-or-later
package pipeline

import (
	"fmt"
	"time"

	"github.com/AkshayRane05/Phishing-Detection-Tool/domain"
)

type ConfigFunc func(c *configuration) error

// Quarantine makes the pipeline move detected messages to the given folder
// and mark them read.
func Quarantine(spamFolder string) ConfigFunc {
	return func(c *configuration) error {
		if len(spamFolder) == 0 {
			return fmt.Errorf("SpamFolder cannot be empty")
		}

		c.Quarantine = true
		c.SpamFolder = spamFolder
		return nil
	}
}

// Alerts enables an SMS notification per newly persisted detection.
func Alerts(alerter domain.Alerter) ConfigFunc {
	return func(c *configuration) error {
		if alerter == nil {
			return fmt.Errorf("Alerter cannot be nil")
		}

		c.Alerter = alerter
		return nil
	}
}

// PollInterval sets the sleep between cycles. It bounds detection latency
// and the call rate against downstream collaborators.
func PollInterval(interval time.Duration) ConfigFunc {
	return func(c *configuration) error {
		if interval <= 0 {
			return fmt.Errorf("PollInterval must be positive")
		}

		c.PollInterval = interval
		return nil
	}
}

// ReconnectBackoff sets the fixed wait before re-dialing a broken session.
func ReconnectBackoff(backoff time.Duration) ConfigFunc {
	return func(c *configuration) error {
		if backoff <= 0 {
			return fmt.Errorf("ReconnectBackoff must be positive")
		}

		c.ReconnectBackoff = backoff
		return nil
	}
}

// Concurrency bounds the per-cycle worker pool.
func Concurrency(workers int) ConfigFunc {
	return func(c *configuration) error {
		if workers < 1 {
			return fmt.Errorf("Concurrency must be at least 1")
		}

		c.Concurrency = workers
		return nil
	}
}

type configuration struct {
	Quarantine bool
	SpamFolder string

	Alerter domain.Alerter

	PollInterval     time.Duration
	ReconnectBackoff time.Duration
	Concurrency      int
}

func defaultConfiguration() *configuration {
	return &configuration{
		PollInterval:     10 * time.Second,
		ReconnectBackoff: 5 * time.Second,
		Concurrency:      8,
	}
}

// SPDX-License-Identifier: GPL-3.0-or-later
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Database string

	ImapHost    string
	User        string
	Password    string
	InboxFolder string

	PollInterval     duration
	ReconnectBackoff duration
	Concurrency      int

	ModelPath string
	VocabPath string

	SafeBrowsingKey      string
	SafeBrowsingEndpoint string

	MoveSpam   bool
	SpamFolder string

	TwilioAccountSid string
	TwilioAuthToken  string
	TwilioFromNumber string
	AdminPhoneNumber string

	ListenAddr string

	Loglevel *string
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func ReadConfig(filename string) (*Config, error) {
	config := &Config{
		Database:             "phishing.db",
		InboxFolder:          "INBOX",
		SpamFolder:           "[Gmail]/Spam",
		PollInterval:         duration{10 * time.Second},
		ReconnectBackoff:     duration{5 * time.Second},
		Concurrency:          8,
		SafeBrowsingEndpoint: "https://safebrowsing.googleapis.com/v4/threatMatches:find",
		ListenAddr:           ":8000",
	}

	_, err := toml.DecodeFile(filename, config)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Poll() time.Duration    { return c.PollInterval.Duration }
func (c *Config) Backoff() time.Duration { return c.ReconnectBackoff.Duration }

// AlertingConfigured reports whether all four Twilio fields are set. Alerting
// is optional, but a partial credential set is a configuration error.
func (c *Config) AlertingConfigured() bool {
	return anySet(c.TwilioAccountSid, c.TwilioAuthToken, c.TwilioFromNumber, c.AdminPhoneNumber)
}

func (c *Config) validate() error {
	if err := validateNonEmptyStringField(c.Database, "Database must not be empty, set to a filename for the sqlite database"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.ImapHost, "ImapHost must not be empty, set to host:port of the imap server"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.User, "User must not be empty, set to username on the imap server"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.Password, "Password must not be empty, set to password of User on the imap server"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.ModelPath, "ModelPath must not be empty, set to the trained model weights file"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.VocabPath, "VocabPath must not be empty, set to the tokenizer vocabulary file"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.SafeBrowsingKey, "SafeBrowsingKey must not be empty, set to a Google Safe Browsing API key"); err != nil {
		return err
	}

	if c.MoveSpam {
		if err := validateNonEmptyStringField(c.SpamFolder, "SpamFolder must not be empty when MoveSpam is set"); err != nil {
			return err
		}
	}

	if c.AlertingConfigured() && !allSet(c.TwilioAccountSid, c.TwilioAuthToken, c.TwilioFromNumber, c.AdminPhoneNumber) {
		return fmt.Errorf("TwilioAccountSid, TwilioAuthToken, TwilioFromNumber and AdminPhoneNumber must all be set to enable SMS alerts")
	}

	if c.Concurrency < 1 {
		return fmt.Errorf("Concurrency must be at least 1")
	}

	if c.PollInterval.Duration <= 0 {
		return fmt.Errorf("PollInterval must be positive")
	}

	return nil
}

func validateNonEmptyStringField(field string, err string) error {
	if len(strings.TrimSpace(field)) == 0 {
		return errors.New(err)
	}

	return nil
}

func anySet(fields ...string) bool {
	for _, f := range fields {
		if len(strings.TrimSpace(f)) > 0 {
			return true
		}
	}
	return false
}

func allSet(fields ...string) bool {
	for _, f := range fields {
		if len(strings.TrimSpace(f)) == 0 {
			return false
		}
	}
	return true
}

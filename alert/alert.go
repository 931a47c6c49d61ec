// SPDX-License-Identifier: GPL-3.0-or-later

// Package alert sends fire-and-forget SMS notifications to the operator
// contact through the Twilio messages api.
package alert

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AkshayRane05/Phishing-Detection-Tool/log"

	"github.com/sirupsen/logrus"
)

const AlertTimeout = 10 * time.Second

type TwilioAlerter struct {
	client  *http.Client
	baseURL string

	accountSid, authToken string
	from, to              string

	l *logrus.Logger
}

func NewTwilioAlerter(accountSid, authToken, from, to string) *TwilioAlerter {
	return &TwilioAlerter{
		client: &http.Client{
			Timeout: AlertTimeout,
		},
		baseURL:    "https://api.twilio.com",
		accountSid: accountSid,
		authToken:  authToken,
		from:       from,
		to:         to,
		l:          log.Logger(log.LOG_ALERT),
	}
}

func (t *TwilioAlerter) SendAlert(message string) error {
	form := url.Values{}
	form.Set("To", t.to)
	form.Set("From", t.from)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSid)
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("could not create alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSid, t.authToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not perform alert request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %d from twilio, expected 200/201", resp.StatusCode)
	}

	t.l.WithFields(logrus.Fields{"to": t.to}).Info("Sent SMS alert")
	return nil
}

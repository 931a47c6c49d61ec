// SPDX-License-Identifier: GPL-3.0-or-later
package urlcheck

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AkshayRane05/Phishing-Detection-Tool/domain"
	"github.com/AkshayRane05/Phishing-Detection-Tool/log"

	"github.com/sirupsen/logrus"
)

const CheckTimeout = 10 * time.Second

// SafeBrowsing resolves URL reputation against the Google Safe Browsing v4
// lookup API. A lookup failure is a verdict (URLError), never a pipeline
// error: the email's phishing classification does not depend on it.
type SafeBrowsing struct {
	client   *http.Client
	endpoint string
	apiKey   string

	l *logrus.Logger
}

func NewSafeBrowsing(endpoint, apiKey string) *SafeBrowsing {
	return &SafeBrowsing{
		client: &http.Client{
			Timeout: CheckTimeout,
		},
		endpoint: endpoint,
		apiKey:   apiKey,
		l:        log.Logger(log.LOG_URLCHECK),
	}
}

type threatEntry struct {
	URL string `json:"url"`
}

type lookupRequest struct {
	Client struct {
		ClientId      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string      `json:"threatTypes"`
		PlatformTypes    []string      `json:"platformTypes"`
		ThreatEntryTypes []string      `json:"threatEntryTypes"`
		ThreatEntries    []threatEntry `json:"threatEntries"`
	} `json:"threatInfo"`
}

type lookupResponse struct {
	Matches []struct {
		ThreatType string `json:"threatType"`
	} `json:"matches"`
}

func (sb *SafeBrowsing) CheckURL(url string) domain.URLStatus {
	status, err := sb.lookup(url)
	if err != nil {
		sb.l.WithFields(logrus.Fields{"url": url, "error": err}).Warn("URL lookup failed")
		return domain.URLError
	}

	sb.l.WithFields(logrus.Fields{"url": url, "status": status}).Debug("Checked URL")
	return status
}

func (sb *SafeBrowsing) lookup(url string) (domain.URLStatus, error) {
	payload := &lookupRequest{}
	payload.Client.ClientId = "phishing-detector-app"
	payload.Client.ClientVersion = "1.0"
	payload.ThreatInfo.ThreatTypes = []string{"MALWARE", "SOCIAL_ENGINEERING"}
	payload.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	payload.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	payload.ThreatInfo.ThreatEntries = []threatEntry{{URL: url}}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.URLError, fmt.Errorf("could not serialize lookup request: %w", err)
	}

	resp, err := sb.client.Post(sb.endpoint+"?key="+sb.apiKey, "application/json", bytes.NewReader(body))
	if err != nil {
		return domain.URLError, fmt.Errorf("could not perform lookup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.URLError, fmt.Errorf("unexpected status %d from lookup api, expected 200", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.URLError, fmt.Errorf("could not read lookup response: %w", err)
	}

	result := &lookupResponse{}
	err = json.Unmarshal(respBody, result)
	if err != nil {
		return domain.URLError, fmt.Errorf("could not deserialize lookup response: %w", err)
	}

	if len(result.Matches) > 0 {
		return domain.URLPhishing, nil
	}

	return domain.URLLegitimate, nil
}

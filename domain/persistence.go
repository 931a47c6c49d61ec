// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "time"

type EmailStatus string

const (
	StatusUnverified  = EmailStatus("unverified")
	StatusVerified    = EmailStatus("verified")
	StatusQuarantined = EmailStatus("quarantined")
)

type URLStatus string

const (
	URLUnchecked  = URLStatus("unchecked")
	URLPhishing   = URLStatus("phishing")
	URLLegitimate = URLStatus("legitimate")
	URLError      = URLStatus("error")
)

type PhishingEmail struct {
	Id         int64       `db:"id" json:"id"`
	Uid        string      `db:"uid" json:"uid"`
	Sender     string      `db:"sender" json:"sender"`
	Subject    string      `db:"subject" json:"subject"`
	Body       string      `db:"body" json:"body"`
	DetectedAt time.Time   `db:"detected_at" json:"detected_at"`
	Confidence float64     `db:"confidence" json:"confidence"`
	Status     EmailStatus `db:"status" json:"status"`
}

type EmailURL struct {
	Id      int64     `db:"id" json:"id"`
	EmailId int64     `db:"email_id" json:"email_id"`
	URL     string    `db:"url" json:"url"`
	Status  URLStatus `db:"status" json:"status"`
}

// CheckedURL pairs an extracted URL with its reputation verdict before it is
// persisted.
type CheckedURL struct {
	URL    string
	Status URLStatus
}

// Store is the durable side of the pipeline: detections keyed by uid and the
// per-folder mailbox cursor.
//
// InsertDetection is the sole deduplication guarantee. A uid conflict is not
// an error, it reports inserted=false and leaves the stored row untouched.
type Store interface {
	Close() error

	InsertDetection(email *PhishingEmail, urls []CheckedURL) ([]*EmailURL, bool, error)
	RecentEmails(limit int) ([]*PhishingEmail, error)
	URLsForEmail(emailId int64) ([]*EmailURL, error)
	UpdateEmailStatus(id int64, status EmailStatus) error

	LoadCursor(folder string) (uint32, bool, error)
	SaveCursor(folder string, uid uint32) error
}

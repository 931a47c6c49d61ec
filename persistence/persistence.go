// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AkshayRane05/Phishing-Detection-Tool/domain"
	"github.com/AkshayRane05/Phishing-Detection-Tool/log"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
)

type Persistence struct {
	db *sqlx.DB
	l  *logrus.Logger
}

func NewPersistence(datasource string) (*Persistence, error) {
	db, err := sqlx.Connect("sqlite3", datasource)
	if err != nil {
		return nil, fmt.Errorf("could not open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	l := log.Logger(log.LOG_PERSISTENCE)
	l.WithField("file", datasource).Info("Connected")

	_, err = db.Exec(`PRAGMA journal_mode=WAL`)
	if err != nil {
		return nil, fmt.Errorf("could not set journal mode: %w", err)
	}
	_, err = db.Exec(`PRAGMA synchronous=normal`)
	if err != nil {
		return nil, fmt.Errorf("could not set synchronous mode: %w", err)
	}
	// Cascade from phishing_emails to email_urls needs enforced foreign keys
	_, err = db.Exec(`PRAGMA foreign_keys=ON`)
	if err != nil {
		return nil, fmt.Errorf("could not enable foreign keys: %w", err)
	}

	appliedMigrations, err := migrate.Exec(db.DB, "sqlite3", migrationSource(), migrate.Up)
	if err != nil {
		return nil, fmt.Errorf("could not migrate to newest version: %w", err)
	}

	l.WithField("migrations", appliedMigrations).Debug("Executed migrations")

	return &Persistence{
		db: db,
		l:  l,
	}, nil
}

func (p *Persistence) Close() error {
	err := p.db.Close()
	if err != nil {
		return fmt.Errorf("could not close db: %w", err)
	}
	p.l.Info("Disconnected")
	return nil
}

// InsertDetection writes a detection and its URL rows in one transaction.
// A uid conflict reports (nil, false, nil): the row already exists and the
// insert is a no-op, which makes concurrent insert attempts and batch
// reprocessing after a crash safe.
func (p *Persistence) InsertDetection(email *domain.PhishingEmail, urls []domain.CheckedURL) ([]*domain.EmailURL, bool, error) {
	if email.Status == "" {
		email.Status = domain.StatusUnverified
	}
	if email.DetectedAt.IsZero() {
		email.DetectedAt = time.Now().UTC()
	}

	tx, err := p.db.BeginTxx(context.TODO(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("could not start transaction: %w", err)
	}

	result, err := tx.Exec(
		"INSERT INTO phishing_emails(uid, sender, subject, body, detected_at, confidence, status) VALUES(?, ?, ?, ?, ?, ?, ?)",
		email.Uid, email.Sender, email.Subject, email.Body, email.DetectedAt, email.Confidence, email.Status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			p.l.WithField("uid", email.Uid).Info("Email already persisted, skipping insert")
			return nil, false, txEnd(tx, nil)
		}
		return nil, false, txEnd(tx, fmt.Errorf("could not save email: %w", err))
	}

	email.Id, err = result.LastInsertId()
	if err != nil {
		return nil, false, txEnd(tx, fmt.Errorf("could not get email id: %w", err))
	}

	stored := []*domain.EmailURL{}
	for _, u := range urls {
		status := u.Status
		if status == "" {
			status = domain.URLUnchecked
		}

		urlResult, err := tx.Exec(
			"INSERT INTO email_urls(email_id, url, status) VALUES(?, ?, ?)",
			email.Id, u.URL, status,
		)
		if err != nil {
			return nil, false, txEnd(tx, fmt.Errorf("could not save url: %w", err))
		}

		urlId, err := urlResult.LastInsertId()
		if err != nil {
			return nil, false, txEnd(tx, fmt.Errorf("could not get url id: %w", err))
		}

		stored = append(stored, &domain.EmailURL{
			Id:      urlId,
			EmailId: email.Id,
			URL:     u.URL,
			Status:  status,
		})
	}

	err = txEnd(tx, nil)
	if err != nil {
		return nil, false, err
	}

	p.l.WithFields(logrus.Fields{"uid": email.Uid, "urls": len(stored)}).Info("Persisted detection")
	return stored, true, nil
}

func (p *Persistence) RecentEmails(limit int) ([]*domain.PhishingEmail, error) {
	emails := []*domain.PhishingEmail{}
	err := p.db.Select(
		&emails,
		`SELECT id, uid, sender, subject, body, detected_at, confidence, status FROM phishing_emails ORDER BY detected_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	return emails, nil
}

func (p *Persistence) URLsForEmail(emailId int64) ([]*domain.EmailURL, error) {
	urls := []*domain.EmailURL{}
	err := p.db.Select(
		&urls,
		`SELECT id, email_id, url, status FROM email_urls WHERE email_id = ?`,
		emailId,
	)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	return urls, nil
}

func (p *Persistence) UpdateEmailStatus(id int64, status domain.EmailStatus) error {
	result, err := p.db.Exec(
		"UPDATE phishing_emails SET status = ? WHERE id = ?",
		status, id,
	)
	if err != nil {
		return fmt.Errorf("could not update status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get num of affected rows: %w", err)
	}

	if affected != 1 {
		return fmt.Errorf("unexpected number of affected rows, expected 1 got %d", affected)
	}

	return nil
}

// LoadCursor returns the last processed uid for a folder. The second return
// is false when no cursor has been persisted yet (first run).
func (p *Persistence) LoadCursor(folder string) (uint32, bool, error) {
	var lastUid uint32
	err := p.db.Get(
		&lastUid,
		"SELECT last_uid FROM mailbox_state WHERE folder = ?",
		folder,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("could not query db: %w", err)
	}

	return lastUid, true, nil
}

// SaveCursor atomically replaces the cursor value, it is never appended.
func (p *Persistence) SaveCursor(folder string, uid uint32) error {
	_, err := p.db.Exec(
		"INSERT OR REPLACE INTO mailbox_state (folder, last_uid) VALUES (?, ?)",
		folder,
		uid,
	)

	if err != nil {
		return fmt.Errorf("could not save cursor: %w", err)
	}

	p.l.WithFields(logrus.Fields{"folder": folder, "lastUid": uid}).Debug("Persisted cursor")
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func txEnd(tx *sqlx.Tx, err error) error {
	if err == nil {
		err = tx.Commit()
		if err != nil {
			return fmt.Errorf("could not commit tx: %w", err)
		}
	} else {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			errStr := err.Error()
			return fmt.Errorf("%s, could not rollback tx: %w", errStr, rollbackErr)
		} else {
			return err
		}
	}

	return nil
}

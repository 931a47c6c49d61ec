// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import migrate "github.com/rubenv/sql-migrate"

func migrationSource() migrate.MigrationSource {
	return &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "1_detections",
				Up: []string{
					`CREATE TABLE phishing_emails (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						uid TEXT NOT NULL UNIQUE,
						sender TEXT,
						subject TEXT,
						body TEXT,
						detected_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						confidence REAL,
						status TEXT NOT NULL DEFAULT 'unverified'
					)`,
					`CREATE TABLE email_urls (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						email_id INTEGER NOT NULL REFERENCES phishing_emails(id) ON DELETE CASCADE,
						url TEXT NOT NULL,
						status TEXT NOT NULL DEFAULT 'unchecked'
					)`,
				},
				Down: []string{
					`DROP TABLE email_urls`,
					`DROP TABLE phishing_emails`,
				},
			},
			{
				Id: "2_mailbox_state",
				Up: []string{
					`CREATE TABLE mailbox_state (
						folder TEXT PRIMARY KEY,
						last_uid INTEGER NOT NULL
					)`,
				},
				Down: []string{
					`DROP TABLE mailbox_state`,
				},
			},
		},
	}
}

// SPDX-License-Identifier: GPL-3.0-or-later

// Package pipeline drives the incremental detection loop: poll the mailbox
// from the persisted cursor, classify new messages, persist and broadcast
// detections, optionally alert and quarantine, then advance the cursor once
// the whole batch is done.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/AkshayRane05/Phishing-Detection-Tool/domain"
	"github.com/AkshayRane05/Phishing-Detection-Tool/log"
	"github.com/AkshayRane05/Phishing-Detection-Tool/mail"
	"github.com/AkshayRane05/Phishing-Detection-Tool/normalize"

	"github.com/sirupsen/logrus"
)

// ConnectFunc dials a fresh mailbox session. The pipeline owns reconnection,
// so it asks for a new session after every session error.
type ConnectFunc func() (domain.MailConnector, error)

type Pipeline struct {
	store       domain.Store
	scorer      domain.Scorer
	urlChecker  domain.URLChecker
	broadcaster domain.Broadcaster
	connect     ConnectFunc

	configuration *configuration

	l *logrus.Logger
}

func NewPipeline(store domain.Store, scorer domain.Scorer, urlChecker domain.URLChecker, broadcaster domain.Broadcaster, connect ConnectFunc, configFunc ...ConfigFunc) (*Pipeline, error) {
	config := defaultConfiguration()
	for _, f := range configFunc {
		err := f(config)
		if err != nil {
			return nil, fmt.Errorf("error applying configuration: %w", err)
		}
	}

	return &Pipeline{
		store:         store,
		scorer:        scorer,
		urlChecker:    urlChecker,
		broadcaster:   broadcaster,
		connect:       connect,
		configuration: config,
		l:             log.Logger(log.LOG_PIPELINE),
	}, nil
}

// Run polls the folder until the context is cancelled. Session errors are
// never fatal: the broken session is dropped and a new one is dialed after a
// fixed backoff.
func (p *Pipeline) Run(ctx context.Context, folder string) {
	for {
		conn, err := p.connect()
		if err != nil {
			p.l.WithFields(logrus.Fields{"error": err, "backoff": p.configuration.ReconnectBackoff}).Warn("Could not connect, retrying")
			if !sleepCtx(ctx, p.configuration.ReconnectBackoff) {
				return
			}
			continue
		}

		p.l.WithField("folder", folder).Info("Listening for new mails")
		err = p.poll(ctx, conn, folder)
		_ = conn.Close()

		if ctx.Err() != nil {
			p.l.Info("Stopping mail listener")
			return
		}

		p.l.WithFields(logrus.Fields{"error": err, "backoff": p.configuration.ReconnectBackoff}).Warn("Connection lost, reconnecting")
		if !sleepCtx(ctx, p.configuration.ReconnectBackoff) {
			return
		}
	}
}

// poll runs cycles at the configured cadence until the session breaks or the
// context ends.
func (p *Pipeline) poll(ctx context.Context, conn domain.MailConnector, folder string) error {
	for {
		err := p.RunCycle(conn, folder)
		if err != nil {
			return err
		}

		if !sleepCtx(ctx, p.configuration.PollInterval) {
			return nil
		}
	}
}

// RunCycle processes every message that arrived since the cursor. The
// returned error is a session error and asks the caller to reconnect; all
// per-message failures are handled inside the cycle.
func (p *Pipeline) RunCycle(conn domain.MailConnector, folder string) error {
	_, err := conn.Select(folder)
	if err != nil {
		return fmt.Errorf("could not select folder %s: %w", folder, err)
	}

	cursor, haveCursor, err := p.store.LoadCursor(folder)
	if err != nil {
		// Store trouble is not a session problem, retry next cycle
		p.l.WithField("error", err).Warn("Could not load cursor, skipping cycle")
		return nil
	}

	if !haveCursor {
		tip, err := conn.LatestUid()
		if err != nil {
			return fmt.Errorf("could not determine mailbox tip: %w", err)
		}

		err = p.store.SaveCursor(folder, tip)
		if err != nil {
			p.l.WithField("error", err).Warn("Could not seed cursor, retrying next cycle")
			return nil
		}

		p.l.WithFields(logrus.Fields{"folder": folder, "cursor": tip}).Info("Seeded cursor at mailbox tip")
		return nil
	}

	newUids, err := conn.SearchSince(cursor)
	if err != nil {
		return fmt.Errorf("could not search for new mails: %w", err)
	}

	if len(newUids) == 0 {
		p.l.WithFields(logrus.Fields{"folder": folder, "cursor": cursor}).Debug("No new mails")
		return nil
	}

	start := time.Now()
	p.l.WithFields(logrus.Fields{"folder": folder, "cursor": cursor, "newmails": len(newUids)}).Info("Found new mails")

	mails, err := conn.FetchMessages(newUids)
	if err != nil {
		return fmt.Errorf("could not fetch mail batch: %w", err)
	}

	// Parsing, scoring, persistence and broadcast fan out to workers; the
	// session itself is only used from this goroutine.
	results := p.processAll(mails)

	phishing := []uint32{}
	quarantineIds := []int64{}
	transientFailure := false
	maxUid := cursor
	for _, r := range results {
		if r.uid > maxUid {
			maxUid = r.uid
		}
		if r.transient {
			transientFailure = true
		}
		if r.phishing {
			phishing = append(phishing, r.uid)
			if r.inserted {
				quarantineIds = append(quarantineIds, r.emailId)
			}
		}
	}

	if p.configuration.Quarantine && len(phishing) > 0 {
		p.quarantine(conn, phishing, quarantineIds)
	}

	if transientFailure {
		// Keep the cursor so the whole batch is retried; uid uniqueness makes
		// the replay safe.
		p.l.WithFields(logrus.Fields{"folder": folder, "cursor": cursor}).Warn("Batch had transient failures, not advancing cursor")
		return nil
	}

	err = p.store.SaveCursor(folder, maxUid)
	if err != nil {
		p.l.WithField("error", err).Warn("Could not persist cursor, batch will be reprocessed")
		return nil
	}

	p.l.WithFields(logrus.Fields{"folder": folder, "duration": time.Since(start), "batchsize": len(mails), "phishing": len(phishing), "cursor": maxUid}).Info("Processed batch")
	return nil
}

type messageResult struct {
	uid       uint32
	phishing  bool
	inserted  bool
	emailId   int64
	transient bool
}

// processAll runs the per-message work on a bounded worker pool and joins
// before returning, so the cursor only moves once the batch is complete.
func (p *Pipeline) processAll(mails []*domain.RawMessage) []*messageResult {
	concurrency := p.configuration.Concurrency
	semaphore := make(chan bool, concurrency)
	results := make([]*messageResult, len(mails))
	for i := 0; i < len(mails); i++ {
		semaphore <- true
		go func(index int) {
			results[index] = p.processMessage(mails[index])
			<-semaphore
		}(i)
	}

	for i := 0; i < concurrency; i++ {
		semaphore <- true
	}

	return results
}

func (p *Pipeline) processMessage(raw *domain.RawMessage) *messageResult {
	result := &messageResult{uid: raw.Uid}

	parsed, err := mail.Parse(raw)
	if err != nil {
		// Malformed message, skip it and keep the batch going
		p.l.WithFields(logrus.Fields{"uid": raw.Uid, "error": err}).Warn("Could not parse mail, skipping")
		return result
	}

	cleaned := normalize.Clean(parsed.Body)

	score, err := p.scorer.Score(cleaned)
	if err != nil {
		p.l.WithFields(logrus.Fields{"uid": raw.Uid, "error": err}).Warn("Could not score mail")
		result.transient = true
		return result
	}

	classification := domain.Classify(score)
	p.l.WithFields(logrus.Fields{"uid": raw.Uid, "sender": parsed.Sender, "subject": mail.ShortSubject(parsed.Subject), "label": classification.Label, "score": classification.Score}).Debug("Checked mail")

	if !classification.IsPhishing() {
		return result
	}
	result.phishing = true

	checked := make([]domain.CheckedURL, 0, len(parsed.URLs))
	for _, u := range parsed.URLs {
		checked = append(checked, domain.CheckedURL{URL: u, Status: p.urlChecker.CheckURL(u)})
	}

	email := &domain.PhishingEmail{
		Uid:        strconv.FormatUint(uint64(raw.Uid), 10),
		Sender:     parsed.Sender,
		Subject:    parsed.Subject,
		Body:       cleaned,
		Confidence: classification.Score,
		Status:     domain.StatusUnverified,
	}

	urls, inserted, err := p.store.InsertDetection(email, checked)
	if err != nil {
		p.l.WithFields(logrus.Fields{"uid": raw.Uid, "error": err}).Warn("Could not persist detection")
		result.transient = true
		return result
	}

	if !inserted {
		// Already persisted in an earlier run, nothing to announce again
		return result
	}
	result.inserted = true
	result.emailId = email.Id

	p.broadcaster.Broadcast(domain.NewEmailEvent(email, urls))

	if p.configuration.Alerter != nil {
		err = p.configuration.Alerter.SendAlert(fmt.Sprintf("Phishing email detected from %s: %s", parsed.Sender, parsed.Subject))
		if err != nil {
			p.l.WithFields(logrus.Fields{"uid": raw.Uid, "error": err}).Warn("Could not send alert")
		}
	}

	return result
}

// quarantine marks the detected messages read and moves them to the spam
// folder. Every failure is logged and non-fatal: moving is retry-safe and an
// already moved message simply is not there anymore.
func (p *Pipeline) quarantine(conn domain.MailConnector, uids []uint32, emailIds []int64) {
	notMoveReadyReason, err := conn.MoveReady()
	if err != nil || notMoveReadyReason != nil {
		p.l.WithFields(logrus.Fields{"error": err, "reason": notMoveReadyReason}).Warn("Folder is not ready for quarantine, skipping")
		return
	}

	err = conn.MarkSeen(uids)
	if err != nil {
		p.l.WithFields(logrus.Fields{"uids": uids, "error": err}).Warn("Could not mark mails read")
	}

	err = conn.Move(uids, p.configuration.SpamFolder)
	if err != nil {
		p.l.WithFields(logrus.Fields{"uids": uids, "error": err}).Warn("Could not quarantine mails")
		return
	}

	p.l.WithFields(logrus.Fields{"uids": uids, "destination": p.configuration.SpamFolder}).Info("Quarantined mails")

	for _, id := range emailIds {
		err = p.store.UpdateEmailStatus(id, domain.StatusQuarantined)
		if err != nil {
			p.l.WithFields(logrus.Fields{"id": id, "error": err}).Warn("Could not update status after quarantine")
		}
	}
}

// sleepCtx waits for the duration and reports false when the context ended
// first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"fmt"
	"io"
	"time"

	"github.com/AkshayRane05/Phishing-Detection-Tool/domain"
	"github.com/AkshayRane05/Phishing-Detection-Tool/log"

	"github.com/emersion/go-imap"
	move "github.com/emersion/go-imap-move"
	uidplus "github.com/emersion/go-imap-uidplus"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"
)

// CommandTimeout bounds every imap command. An unbounded command would stall
// the polling cycle.
const CommandTimeout = 30 * time.Second

// ImapConnection is one authenticated mailbox session. It is not safe for
// concurrent use; the pipeline issues all commands from a single goroutine.
type ImapConnection struct {
	connection *client.Client
	mailMover  mover

	server, user, password string

	selectedFolder string

	l *logrus.Logger
}

func NewImapConnection(server string, user string, password string) (*ImapConnection, error) {
	imapClient, err := client.DialTLS(server, nil)
	if err != nil {
		return nil, fmt.Errorf("could not dial to imap: %w", err)
	}
	imapClient.Timeout = CommandTimeout

	err = imapClient.Login(user, password)
	if err != nil {
		return nil, fmt.Errorf("could not login to imap: %w", err)
	}

	uidPlusClient := uidplus.NewClient(imapClient)
	uidPlusSupported, err := uidPlusClient.SupportUidPlus()
	if err != nil {
		return nil, fmt.Errorf("could not check for UIDPLUS support: %w", err)
	}

	moveClient := move.NewClient(imapClient)
	moveSupported, err := moveClient.SupportMove()
	if err != nil {
		return nil, fmt.Errorf("could not check for MOVE support: %w", err)
	}

	conn := &ImapConnection{
		connection: imapClient,
		server:     server,
		user:       user,
		password:   password,
		l:          log.Logger(log.LOG_IMAP),
	}

	baseLogger := conn.l.WithFields(logrus.Fields{"server": server})
	baseLogger.Debug("Logged in to server")

	if moveSupported {
		baseLogger.Debug("MOVE supported on server")
		conn.mailMover = &moveMover{
			moveClient: moveClient,
		}
	} else if uidPlusSupported {
		baseLogger.Info("MOVE not supported on server, falling back to copy&delete with UID expunge")
		conn.mailMover = &copyExpungeMover{
			imapConn:      conn,
			uidplusClient: uidPlusClient,
		}
	} else {
		baseLogger.Info("MOVE and UIDPLUS not supported on server, falling back to copy&delete with full expunge")
		conn.mailMover = &compatibilityMover{
			imapConn: conn,
		}
	}

	return conn, nil
}

func (ic *ImapConnection) Select(folder string) (uint32, error) {
	m, err := ic.connection.Select(folder, false)
	if err != nil {
		return 0, fmt.Errorf("could not select folder: %w", err)
	}

	ic.selectedFolder = folder
	return m.UidValidity, nil
}

// LatestUid returns the highest uid in the selected folder, 0 when the
// folder is empty. The pipeline seeds a missing cursor with it so a first
// run does not flood the classifier with old mail.
func (ic *ImapConnection) LatestUid() (uint32, error) {
	criteria := imap.NewSearchCriteria()
	ids, err := ic.connection.UidSearch(criteria)
	if err != nil {
		return 0, fmt.Errorf("could not list folder: %w", err)
	}

	latest := uint32(0)
	for _, id := range ids {
		if id > latest {
			latest = id
		}
	}

	return latest, nil
}

// SearchSince lists uids strictly greater than the cursor. Servers answer a
// "uid:*" range with at least the last message even when nothing is new, so
// the result is filtered again client-side.
func (ic *ImapConnection) SearchSince(uid uint32) ([]uint32, error) {
	seqset := &imap.SeqSet{}
	seqset.AddRange(uid+1, 0)

	criteria := imap.NewSearchCriteria()
	criteria.Uid = seqset

	ids, err := ic.connection.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("could not search folder: %w", err)
	}

	newIds := []uint32{}
	for _, id := range ids {
		if id > uid {
			newIds = append(newIds, id)
		}
	}

	return newIds, nil
}

func (ic *ImapConnection) FetchMessages(uids []uint32) ([]*domain.RawMessage, error) {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)

	messages := make(chan *imap.Message, 10)
	fullBodySection := &imap.BodySectionName{
		Peek: true,
	}

	fetchItems := []imap.FetchItem{imap.FetchUid, fullBodySection.FetchItem()}
	done := make(chan error, 1)
	go func() {
		done <- ic.connection.UidFetch(seqset, fetchItems, messages)
	}()

	mails := []*domain.RawMessage{}
	for msg := range messages {
		r := msg.GetBody(fullBodySection)
		if r == nil {
			continue
		}
		rawBody, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("could not read mail body: %w", err)
		}

		mails = append(
			mails,
			&domain.RawMessage{
				Uid: msg.Uid,
				Raw: rawBody,
			},
		)
	}

	err := <-done
	if err != nil {
		return nil, fmt.Errorf("could not fetch mails: %w", err)
	}

	return mails, nil
}

func (ic *ImapConnection) MarkSeen(uids []uint32) error {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	err := ic.connection.UidStore(seqset, imap.FormatFlagsOp(imap.AddFlags, true), []interface{}{imap.SeenFlag}, nil)
	if err != nil {
		return fmt.Errorf("could not set seen flag: %w", err)
	}

	return nil
}

func (ic *ImapConnection) Close() error {
	return ic.connection.Logout()
}

func (ic *ImapConnection) MoveReady() (error, error) {
	return ic.mailMover.moveReady()
}

func (ic *ImapConnection) Move(uids []uint32, folder string) error {
	return ic.mailMover.move(uids, folder)
}

func (ic *ImapConnection) UidCopy(seqset *imap.SeqSet, dest string) error {
	return ic.connection.UidCopy(seqset, dest)
}

func (ic *ImapConnection) Expunge(ch chan uint32) error {
	return ic.connection.Expunge(ch)
}

func (ic *ImapConnection) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	return ic.connection.UidSearch(criteria)
}

func (ic *ImapConnection) flagDeleted(uids []uint32) (*imap.SeqSet, error) {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	err := ic.connection.UidStore(seqset, imap.FormatFlagsOp(imap.AddFlags, true), []interface{}{imap.DeletedFlag}, nil)
	if err != nil {
		return nil, fmt.Errorf("could not set delete flag: %w", err)
	}

	return seqset, nil
}

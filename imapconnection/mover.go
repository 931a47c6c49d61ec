// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"fmt"

	"github.com/emersion/go-imap"
)

// Quarantining means moving a message to the spam folder. Servers with the
// MOVE extension do this natively; everything else gets copy&delete, with
// UID EXPUNGE when UIDPLUS is available and a full EXPUNGE as last resort.
// The full expunge variant is only safe when no unrelated message carries
// the deleted flag, which moveReady checks before each cycle.

type mover interface {
	move(uids []uint32, folder string) error
	moveReady() (error, error)
}

type moveClient interface {
	UidMove(seqset *imap.SeqSet, dest string) error
}

type moveMover struct {
	moveClient moveClient
}

func (m *moveMover) move(uids []uint32, folder string) error {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	return m.moveClient.UidMove(seqset, folder)
}

func (m *moveMover) moveReady() (error, error) {
	// MOVE implements move directly and is therefore ready to move all the time
	return nil, nil
}

type copyAndFlagClient interface {
	UidCopy(seqset *imap.SeqSet, dest string) error
	flagDeleted(uids []uint32) (*imap.SeqSet, error)
}

type uidExpunger interface {
	UidExpunge(seqSet *imap.SeqSet, ch chan uint32) error
}

type copyExpungeMover struct {
	imapConn      copyAndFlagClient
	uidplusClient uidExpunger
}

func (c *copyExpungeMover) move(uids []uint32, folder string) error {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	err := c.imapConn.UidCopy(seqset, folder)
	if err != nil {
		return fmt.Errorf("could not copy mails: %w", err)
	}

	flagged, err := c.imapConn.flagDeleted(uids)
	if err != nil {
		return fmt.Errorf("could not flag copied mails as deleted: %w", err)
	}

	out := make(chan uint32)
	done := make(chan error, 1)
	go func() {
		done <- c.uidplusClient.UidExpunge(flagged, out)
	}()

	expunged := []uint32{}
	for uid := range out {
		expunged = append(expunged, uid)
	}

	err = <-done
	if err != nil {
		return fmt.Errorf("could not expunge mails: %w", err)
	}

	if len(expunged) != len(uids) {
		return fmt.Errorf("unexpected number of expunges, expected %d got %d", len(uids), len(expunged))
	}

	return nil
}

func (c *copyExpungeMover) moveReady() (error, error) {
	// UID EXPUNGE only touches the flagged uids and is therefore always ready
	return nil, nil
}

type fullExpungeClient interface {
	copyAndFlagClient
	Expunge(ch chan uint32) error
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
}

type compatibilityMover struct {
	imapConn fullExpungeClient
}

var ItemsWithDeletedFlagPresent = fmt.Errorf("folder has previous items with delete flag set")

func (c *compatibilityMover) move(uids []uint32, folder string) error {
	notMoveReadyReason, err := c.moveReady()
	if err != nil {
		return fmt.Errorf("could not check for move readiness: %w", err)
	}

	if notMoveReadyReason != nil {
		return fmt.Errorf("folder is not ready for copy&delete move: %w", notMoveReadyReason)
	}

	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	err = c.imapConn.UidCopy(seqset, folder)
	if err != nil {
		return fmt.Errorf("could not copy mails: %w", err)
	}

	_, err = c.imapConn.flagDeleted(uids)
	if err != nil {
		return fmt.Errorf("could not flag copied mails as deleted: %w", err)
	}

	out := make(chan uint32)
	done := make(chan error, 1)
	go func() {
		done <- c.imapConn.Expunge(out)
	}()

	expunged := []uint32{}
	for uid := range out {
		expunged = append(expunged, uid)
	}

	err = <-done
	if err != nil {
		return fmt.Errorf("could not expunge mails: %w", err)
	}

	if len(expunged) != len(uids) {
		return fmt.Errorf("unexpected number of expunges, expected %d got %d", len(uids), len(expunged))
	}

	return nil
}

func (c *compatibilityMover) moveReady() (error, error) {
	// EXPUNGE deletes everything that has the deleted flag set, so moving is
	// only safe when no other mail carries the flag.
	criteria := imap.NewSearchCriteria()
	criteria.WithFlags = []string{imap.DeletedFlag}
	ids, err := c.imapConn.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("could not search for deleted in folder: %w", err)
	}

	if len(ids) == 0 {
		return nil, nil
	}
	return ItemsWithDeletedFlagPresent, nil
}

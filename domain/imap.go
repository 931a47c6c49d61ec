// SPDX-License-Identifier: GPL-3.0-or-later
package domain

// RawMessage is a fetched, still undecoded message. It only lives for the
// duration of one processing cycle.
type RawMessage struct {
	Uid uint32
	Raw []byte
}

// MailConnector is a single authenticated mailbox session. Implementations
// are not safe for concurrent use, all commands must be issued serially.
type MailConnector interface {
	Select(folder string) (uint32, error)
	LatestUid() (uint32, error)
	SearchSince(uid uint32) ([]uint32, error)
	FetchMessages(uids []uint32) ([]*RawMessage, error)
	MarkSeen(uids []uint32) error
	MoveReady() (error, error)
	Move(uids []uint32, folder string) error

	Close() error
}

// SPDX-License-Identifier: GPL-3.0-or-later
package domain

//go:generate mockgen -destination=mocks/imap.go -package=mocks . MailTransport,MailSession,MessageDecoder
import "time"

// RawMail is a message as delivered by the server, before decoding.
type RawMail struct {
	Uid          uint32
	Flags        []string
	InternalDate time.Time
	Raw          []byte
}

// Message is a decoded mail. Uid is only meaningful within the session it was
// fetched in, MessageID is stable across sessions.
type Message struct {
	Uid         uint32
	MessageID   string
	FromName    string
	FromAddress string
	Subject     string
	Body        string
	ReceivedAt  time.Time
	Raw         []byte
}

type MailTransport interface {
	Connect() (MailSession, error)
}

type MailSession interface {
	// Select opens the mailbox read-write and returns its UIDVALIDITY.
	Select(mailbox string) (uint32, error)
	// SearchUnseenSince returns the uids of unseen messages received since
	// the given time, newest first.
	SearchUnseenSince(since time.Time) ([]uint32, error)
	// Fetch returns whatever was delivered before an error occurred together
	// with that error.
	Fetch(uids []uint32) ([]*RawMail, error)
	FlagDeleted(uids []uint32) error
	FlagSeen(uids []uint32) error
	Expunge(uids []uint32) error
	Move(uids []uint32, folder string) error
	Disconnect()
}

type MessageDecoder interface {
	Decode(raw *RawMail) (*Message, error)
}

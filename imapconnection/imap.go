// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"

	"github.com/emersion/go-imap"
	compress "github.com/emersion/go-imap-compress"
	move "github.com/emersion/go-imap-move"
	uidplus "github.com/emersion/go-imap-uidplus"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"
)

// ImapTransport opens one authenticated session per call to Connect.
type ImapTransport struct {
	server, user, password string

	disableTLS bool
	compress   bool

	l *logrus.Logger
}

func NewImapTransport(server, user, password string, disableTLS, useCompression bool) *ImapTransport {
	return &ImapTransport{
		server:     server,
		user:       user,
		password:   password,
		disableTLS: disableTLS,
		compress:   useCompression,
		l:          log.Logger(log.LOG_IMAP),
	}
}

func (t *ImapTransport) Connect() (domain.MailSession, error) {
	var imapClient *client.Client
	var err error
	if t.disableTLS {
		imapClient, err = client.Dial(t.server)
	} else {
		imapClient, err = client.DialTLS(t.server, nil)
	}
	if err != nil {
		return nil, &domain.ConnectionError{Server: t.server, Err: fmt.Errorf("could not dial to imap: %w", err)}
	}

	session := &ImapSession{
		connection: imapClient,
		server:     t.server,
		l:          t.l,
	}

	err = imapClient.Login(t.user, t.password)
	if err != nil {
		session.Disconnect()
		return nil, &domain.ConnectionError{Server: t.server, Err: fmt.Errorf("could not login to imap: %w", err)}
	}

	err = session.negotiate(t.compress)
	if err != nil {
		session.Disconnect()
		return nil, &domain.ConnectionError{Server: t.server, Err: err}
	}

	return session, nil
}

type ImapSession struct {
	connection  *client.Client
	mailDeleter deleter
	mailMover   mover

	server   string
	selected string
	closed   bool

	l *logrus.Logger
}

func (s *ImapSession) negotiate(useCompression bool) error {
	baseLogger := s.l.WithFields(logrus.Fields{"server": s.server})

	if useCompression {
		compressClient := compress.NewClient(s.connection)
		compressSupported, err := compressClient.SupportCompress(compress.Deflate)
		if err != nil {
			return fmt.Errorf("could not check for COMPRESS support: %w", err)
		}
		if compressSupported {
			err = compressClient.Compress(compress.Deflate)
			if err != nil {
				return fmt.Errorf("could not enable compression: %w", err)
			}
			baseLogger.Debug("COMPRESS=DEFLATE enabled")
		} else {
			baseLogger.Info("COMPRESS not supported on server, continuing uncompressed")
		}
	}

	uidPlusClient := uidplus.NewClient(s.connection)
	uidPlusSupported, err := uidPlusClient.SupportUidPlus()
	if err != nil {
		return fmt.Errorf("could not check for UIDPLUS support: %w", err)
	}

	moveClient := move.NewClient(s.connection)
	moveSupported, err := moveClient.SupportMove()
	if err != nil {
		return fmt.Errorf("could not check for MOVE support: %w", err)
	}

	if uidPlusSupported {
		baseLogger.Debug("UIDPLUS supported on server, using UID EXPUNGE")
		s.mailDeleter = &uidPlusDeleter{client: uidPlusClient}
	} else {
		baseLogger.Info("UIDPLUS not supported on server, falling back to plain EXPUNGE")
		s.mailDeleter = &compatibilityDeleter{client: s.connection}
	}

	if moveSupported {
		baseLogger.Debug("MOVE supported on server")
		s.mailMover = &moveMover{moveClient: moveClient}
	} else {
		baseLogger.Info("MOVE not supported on server, falling back to copy&delete")
		s.mailMover = &compatibilityMover{session: s}
	}

	baseLogger.Debug("Logged in to server")
	return nil
}

func (s *ImapSession) Select(mailbox string) (uint32, error) {
	status, err := s.connection.Select(mailbox, false)
	if err != nil {
		return 0, &domain.TransportError{Op: "select " + mailbox, Err: err}
	}

	s.selected = mailbox
	return status.UidValidity, nil
}

func (s *ImapSession) SearchUnseenSince(since time.Time) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := s.connection.UidSearch(criteria)
	if err != nil {
		return nil, &domain.TransportError{Op: "search", Err: err}
	}

	sortNewestFirst(uids)
	return uids, nil
}

// Fetch returns mails in the order of uids. Mails delivered before a failure
// are returned along with the error.
func (s *ImapSession) Fetch(uids []uint32) ([]*domain.RawMail, error) {
	if len(uids) == 0 {
		return []*domain.RawMail{}, nil
	}

	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	fetchItems := []imap.FetchItem{imap.FetchUid, imap.FetchFlags, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- s.connection.UidFetch(seqset, fetchItems, messages)
	}()

	fetched := []*domain.RawMail{}
	var readErr error
	for msg := range messages {
		r := msg.GetBody(section)
		if r == nil {
			s.l.WithField("uid", msg.Uid).Warn("Server returned no body, skipping")
			continue
		}

		raw, err := io.ReadAll(r)
		if err != nil {
			if readErr == nil {
				readErr = fmt.Errorf("could not read mail body of %d: %w", msg.Uid, err)
			}
			continue
		}

		fetched = append(fetched, &domain.RawMail{
			Uid:          msg.Uid,
			Flags:        msg.Flags,
			InternalDate: msg.InternalDate,
			Raw:          raw,
		})
	}

	mails := orderByUids(fetched, uids)

	err := <-done
	if err != nil {
		return mails, &domain.TransportError{Op: "fetch", Err: err}
	}
	if readErr != nil {
		return mails, &domain.TransportError{Op: "fetch", Err: readErr}
	}

	return mails, nil
}

func (s *ImapSession) FlagDeleted(uids []uint32) error {
	err := s.flagDeleted(uids)
	if err != nil {
		return &domain.TransportError{Op: "flag deleted", Err: err}
	}
	return nil
}

func (s *ImapSession) FlagSeen(uids []uint32) error {
	err := s.addFlag(uids, imap.SeenFlag)
	if err != nil {
		return &domain.TransportError{Op: "flag seen", Err: err}
	}
	return nil
}

func (s *ImapSession) Expunge(uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}

	err := s.expunge(uids)
	if err != nil {
		return &domain.TransportError{Op: "expunge", Err: err}
	}
	return nil
}

func (s *ImapSession) Move(uids []uint32, folder string) error {
	if len(uids) == 0 {
		return nil
	}

	err := s.mailMover.move(uids, folder)
	if err != nil {
		return &domain.TransportError{Op: "move to " + folder, Err: err}
	}
	return nil
}

// Disconnect logs out once. Failures are only logged.
func (s *ImapSession) Disconnect() {
	if s.closed {
		return
	}
	s.closed = true

	err := s.connection.Logout()
	if err != nil {
		s.l.WithFields(logrus.Fields{"server": s.server, "error": err}).Debug("Logout failed")
	}
}

func (s *ImapSession) flagDeleted(uids []uint32) error {
	return s.addFlag(uids, imap.DeletedFlag)
}

func (s *ImapSession) addFlag(uids []uint32, flag string) error {
	if len(uids) == 0 {
		return nil
	}

	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	err := s.connection.UidStore(seqset, imap.FormatFlagsOp(imap.AddFlags, true), []interface{}{flag}, nil)
	if err != nil {
		return fmt.Errorf("could not set %s flag: %w", flag, err)
	}

	return nil
}

func (s *ImapSession) copyUids(uids []uint32, dest string) error {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	return s.connection.UidCopy(seqset, dest)
}

func (s *ImapSession) expunge(uids []uint32) error {
	return s.mailDeleter.expunge(uids)
}

func (s *ImapSession) expungeReady(uids []uint32) (error, error) {
	return s.mailDeleter.expungeReady(uids)
}

func sortNewestFirst(uids []uint32) {
	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
}

func orderByUids(mails []*domain.RawMail, uids []uint32) []*domain.RawMail {
	byUid := make(map[uint32]*domain.RawMail, len(mails))
	for _, m := range mails {
		byUid[m.Uid] = m
	}

	ordered := make([]*domain.RawMail, 0, len(mails))
	for _, uid := range uids {
		if m, ok := byUid[uid]; ok {
			ordered = append(ordered, m)
			delete(byUid, uid)
		}
	}

	return ordered
}

// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"errors"
	"testing"
	"time"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
)

func testSession(d deleter, m mover) *ImapSession {
	log.InitLogging("error")
	return &ImapSession{
		mailDeleter: d,
		mailMover:   m,
		server:      "imap.example.com:993",
		l:           log.Logger(log.LOG_IMAP),
	}
}

func TestImapSession_ExpungeDelegates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := NewMockdeleter(ctrl)
	session := testSession(d, nil)

	d.EXPECT().expunge(u32a(4, 5)).Return(nil)
	assert.NoError(t, session.Expunge(u32a(4, 5)))

	d.EXPECT().expunge(u32a(6)).Return(errors.New("gone"))
	err := session.Expunge(u32a(6))
	var transportErr *domain.TransportError
	if assert.ErrorAs(t, err, &transportErr) {
		assert.Equal(t, "expunge", transportErr.Op)
	}
}

func TestImapSession_EmptyUidsAreNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	session := testSession(NewMockdeleter(ctrl), NewMockmover(ctrl))

	assert.NoError(t, session.Expunge(nil))
	assert.NoError(t, session.Move(u32a(), "Trash"))
	assert.NoError(t, session.FlagDeleted(nil))
	assert.NoError(t, session.FlagSeen(nil))

	mails, err := session.Fetch(nil)
	assert.NoError(t, err)
	assert.Empty(t, mails)
}

func TestImapSession_MoveDelegates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := NewMockmover(ctrl)
	session := testSession(nil, m)

	m.EXPECT().move(u32a(1, 2), "Trash").Return(nil)
	assert.NoError(t, session.Move(u32a(1, 2), "Trash"))

	m.EXPECT().move(u32a(3), "Trash").Return(errors.New("quota"))
	assert.EqualError(t, session.Move(u32a(3), "Trash"), "move to Trash failed: quota")
}

func TestImapSession_ExpungeReadyDelegates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := NewMockdeleter(ctrl)
	session := testSession(d, nil)

	d.EXPECT().expungeReady(u32a(1)).Return(ItemsWithDeletedFlagPresent, nil)
	notReady, err := session.expungeReady(u32a(1))
	assert.ErrorIs(t, notReady, ItemsWithDeletedFlagPresent)
	assert.NoError(t, err)
}

func TestSortNewestFirst(t *testing.T) {
	uids := u32a(3, 10, 1, 7)
	sortNewestFirst(uids)
	assert.Equal(t, u32a(10, 7, 3, 1), uids)
}

func TestOrderByUids(t *testing.T) {
	now := time.Now()
	mails := []*domain.RawMail{
		{Uid: 1, InternalDate: now},
		{Uid: 3, InternalDate: now},
		{Uid: 2, InternalDate: now},
	}

	ordered := orderByUids(mails, u32a(3, 2, 9, 1))
	if assert.Len(t, ordered, 3) {
		assert.Equal(t, u32(3), ordered[0].Uid)
		assert.Equal(t, u32(2), ordered[1].Uid)
		assert.Equal(t, u32(1), ordered[2].Uid)
	}
}

// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"errors"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
)

func TestMoveMover_Move(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := NewMockmoveClient(ctrl)
	mover := moveMover{conn}

	seqset := &imap.SeqSet{}
	seqset.AddNum(u32a(1, 2, 3)...)
	conn.EXPECT().
		UidMove(gomock.Eq(seqset), gomock.Eq("Trash")).
		Return(nil)

	err := mover.move(u32a(1, 2, 3), "Trash")
	assert.NoError(t, err)
}

func TestMoveMover_MoveError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := NewMockmoveClient(ctrl)
	mover := moveMover{conn}

	conn.EXPECT().
		UidMove(gomock.Any(), gomock.Eq("Trash")).
		Return(errors.New("no such mailbox"))

	err := mover.move(u32a(1), "Trash")
	assert.EqualError(t, err, "could not move mails: no such mailbox")
}

func TestCompatibilityMover_Move(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := NewMockcopyAndDeleteMoveClient(ctrl)
	mover := compatibilityMover{conn}

	gomock.InOrder(
		conn.EXPECT().expungeReady(u32a(1, 2, 3)).Return(nil, nil),
		conn.EXPECT().copyUids(u32a(1, 2, 3), "Trash").Return(nil),
		conn.EXPECT().flagDeleted(u32a(1, 2, 3)).Return(nil),
		conn.EXPECT().expunge(u32a(1, 2, 3)).Return(nil),
	)

	err := mover.move(u32a(1, 2, 3), "Trash")
	assert.NoError(t, err)
}

func TestCompatibilityMover_MoveButNotReady(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conn := NewMockcopyAndDeleteMoveClient(ctrl)
	mover := compatibilityMover{conn}

	conn.EXPECT().
		expungeReady(u32a(1, 2, 3)).
		Return(errors.New("expunge not ready"), nil)

	err := mover.move(u32a(1, 2, 3), "Trash")
	assert.EqualError(t, err, "folder is not ready for expunge, cannot move (copy&delete): expunge not ready")
}

func TestCompatibilityMover_MoveFailures(t *testing.T) {
	failure := errors.New("boom")

	tests := []struct {
		name     string
		expect   func(conn *MockcopyAndDeleteMoveClient)
		expected string
	}{
		{
			name: "readiness check",
			expect: func(conn *MockcopyAndDeleteMoveClient) {
				conn.EXPECT().expungeReady(gomock.Any()).Return(nil, failure)
			},
			expected: "could not check for expunge readiness to move: boom",
		},
		{
			name: "copy",
			expect: func(conn *MockcopyAndDeleteMoveClient) {
				conn.EXPECT().expungeReady(gomock.Any()).Return(nil, nil)
				conn.EXPECT().copyUids(gomock.Any(), "Trash").Return(failure)
			},
			expected: "could not copy mails: boom",
		},
		{
			name: "flag",
			expect: func(conn *MockcopyAndDeleteMoveClient) {
				conn.EXPECT().expungeReady(gomock.Any()).Return(nil, nil)
				conn.EXPECT().copyUids(gomock.Any(), "Trash").Return(nil)
				conn.EXPECT().flagDeleted(gomock.Any()).Return(failure)
			},
			expected: "could not flag copied mails: boom",
		},
		{
			name: "expunge",
			expect: func(conn *MockcopyAndDeleteMoveClient) {
				conn.EXPECT().expungeReady(gomock.Any()).Return(nil, nil)
				conn.EXPECT().copyUids(gomock.Any(), "Trash").Return(nil)
				conn.EXPECT().flagDeleted(gomock.Any()).Return(nil)
				conn.EXPECT().expunge(gomock.Any()).Return(failure)
			},
			expected: "could not expunge copied mails: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			conn := NewMockcopyAndDeleteMoveClient(ctrl)
			tt.expect(conn)

			mover := compatibilityMover{conn}
			err := mover.move(u32a(1), "Trash")
			assert.EqualError(t, err, tt.expected)
			assert.ErrorIs(t, err, failure)
		})
	}
}

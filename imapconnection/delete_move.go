// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import "github.com/emersion/go-imap"

//go:generate mockgen -destination=delete_move_mocks_test.go -package=imapconnection -source delete_move.go

// Consolidated file for the interfaces the expunge and move strategies depend on
// so gomock can generate mocks properly. Unexported interfaces do not allow for
// reflection mode but source-mode fails if there are embedded interfaces spread
// over multiple source files.

type deleter interface {
	expunge(uids []uint32) error
	expungeReady(uids []uint32) (error, error)
}

type mover interface {
	move(uids []uint32, folder string) error
}

type uidExpunger interface {
	UidExpunge(seqSet *imap.SeqSet, ch chan uint32) error
}

type expungeSearcher interface {
	Expunge(ch chan uint32) error
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
}

type moveClient interface {
	UidMove(seqset *imap.SeqSet, dest string) error
}

type copyAndDeleteMoveClient interface {
	deleter
	copyUids(uids []uint32, dest string) error
	flagDeleted(uids []uint32) error
}

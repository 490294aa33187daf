// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"fmt"

	"github.com/emersion/go-imap"
)

type moveMover struct {
	moveClient moveClient
}

func (m *moveMover) move(uids []uint32, folder string) error {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	err := m.moveClient.UidMove(seqset, folder)
	if err != nil {
		return fmt.Errorf("could not move mails: %w", err)
	}

	return nil
}

type compatibilityMover struct {
	session copyAndDeleteMoveClient
}

func (c *compatibilityMover) move(uids []uint32, folder string) error {
	notReadyReason, err := c.session.expungeReady(uids)
	if err != nil {
		return fmt.Errorf("could not check for expunge readiness to move: %w", err)
	}

	if notReadyReason != nil {
		return fmt.Errorf("folder is not ready for expunge, cannot move (copy&delete): %w", notReadyReason)
	}

	err = c.session.copyUids(uids, folder)
	if err != nil {
		return fmt.Errorf("could not copy mails: %w", err)
	}

	err = c.session.flagDeleted(uids)
	if err != nil {
		return fmt.Errorf("could not flag copied mails: %w", err)
	}

	err = c.session.expunge(uids)
	if err != nil {
		return fmt.Errorf("could not expunge copied mails: %w", err)
	}

	return nil
}

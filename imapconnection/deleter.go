// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"errors"
	"fmt"

	"github.com/emersion/go-imap"
)

type uidPlusDeleter struct {
	client uidExpunger
}

// expunge removes exactly the given uids, they must already carry \Deleted.
func (u *uidPlusDeleter) expunge(uids []uint32) error {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)

	out := make(chan uint32)
	done := make(chan error, 1)
	go func() {
		done <- u.client.UidExpunge(seqset, out)
	}()

	expunged := 0
	for range out {
		expunged++
	}

	err := <-done
	if err != nil {
		return fmt.Errorf("could not expunge mails: %w", err)
	}

	if expunged != len(uids) {
		return fmt.Errorf("unexpected number of expunges, expected %d got %d", len(uids), expunged)
	}

	return nil
}

func (u *uidPlusDeleter) expungeReady(uids []uint32) (error, error) {
	// UIDPLUS can expunge by uid and is therefore always ready
	return nil, nil
}

var ItemsWithDeletedFlagPresent = errors.New("folder has other items with delete flag set")

type compatibilityDeleter struct {
	client expungeSearcher
}

// expunge issues a plain EXPUNGE, which removes every message carrying
// \Deleted. It refuses when that would include messages outside uids.
func (c *compatibilityDeleter) expunge(uids []uint32) error {
	flagged, err := c.flaggedDeleted()
	if err != nil {
		return err
	}

	if notReady := notSubset(flagged, uids); notReady != nil {
		return fmt.Errorf("folder is not ready for expunge: %w", notReady)
	}

	out := make(chan uint32)
	done := make(chan error, 1)
	go func() {
		done <- c.client.Expunge(out)
	}()

	expunged := 0
	for range out {
		expunged++
	}

	err = <-done
	if err != nil {
		return fmt.Errorf("could not expunge mails: %w", err)
	}

	if expunged != len(flagged) {
		return fmt.Errorf("unexpected number of expunges, expected %d got %d", len(flagged), expunged)
	}

	return nil
}

func (c *compatibilityDeleter) expungeReady(uids []uint32) (error, error) {
	flagged, err := c.flaggedDeleted()
	if err != nil {
		return nil, err
	}

	return notSubset(flagged, uids), nil
}

func (c *compatibilityDeleter) flaggedDeleted() ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithFlags = []string{imap.DeletedFlag}
	ids, err := c.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("could not search for deleted in folder: %w", err)
	}

	return ids, nil
}

func notSubset(flagged, uids []uint32) error {
	allowed := make(map[uint32]bool, len(uids))
	for _, uid := range uids {
		allowed[uid] = true
	}

	for _, uid := range flagged {
		if !allowed[uid] {
			return ItemsWithDeletedFlagPresent
		}
	}

	return nil
}

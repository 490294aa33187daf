// SPDX-License-Identifier: GPL-3.0-or-later
package triage

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultMailbox       = "INBOX"
	DefaultLookback      = 48 * time.Hour
	DefaultBatchSize     = 100
	DefaultRetentionDays = 7
)

type ConfigFunc func(c *configuration) error

func DryRun() ConfigFunc {
	return func(c *configuration) error {
		c.DryRun = true

		return nil
	}
}

func Mailbox(mailbox string) ConfigFunc {
	return func(c *configuration) error {
		if len(mailbox) == 0 {
			return fmt.Errorf("Mailbox cannot be null")
		}

		c.Mailbox = mailbox
		return nil
	}
}

func Lookback(lookback time.Duration) ConfigFunc {
	return func(c *configuration) error {
		if lookback <= 0 {
			return fmt.Errorf("Lookback must be positive, got %v", lookback)
		}

		c.Lookback = lookback
		return nil
	}
}

func BatchSize(batchSize int) ConfigFunc {
	return func(c *configuration) error {
		if batchSize <= 0 {
			return fmt.Errorf("BatchSize must be positive, got %d", batchSize)
		}

		c.BatchSize = batchSize
		return nil
	}
}

func RetentionDays(days int) ConfigFunc {
	return func(c *configuration) error {
		if days <= 0 {
			return fmt.Errorf("RetentionDays must be positive, got %d", days)
		}

		c.RetentionDays = days
		return nil
	}
}

// ProtectedDomains adds sender address fragments that are always kept. Blank
// entries are ignored.
func ProtectedDomains(domains []string) ConfigFunc {
	return func(c *configuration) error {
		for _, d := range domains {
			d = strings.ToLower(strings.TrimSpace(d))
			if d != "" {
				c.ProtectedDomains = append(c.ProtectedDomains, d)
			}
		}

		return nil
	}
}

func TrashFolder(folder string) ConfigFunc {
	return func(c *configuration) error {
		if len(folder) == 0 {
			return fmt.Errorf("TrashFolder cannot be null")
		}

		if folder == c.Mailbox {
			return fmt.Errorf("TrashFolder cannot be the triaged mailbox %s", folder)
		}

		c.TrashFolder = folder
		return nil
	}
}

func ReconcilePending() ConfigFunc {
	return func(c *configuration) error {
		c.ReconcilePending = true
		return nil
	}
}

type configuration struct {
	DryRun bool

	Mailbox       string
	Lookback      time.Duration
	BatchSize     int
	RetentionDays int

	ProtectedDomains []string

	TrashFolder      string
	ReconcilePending bool
}

func defaultConfiguration() *configuration {
	return &configuration{
		Mailbox:       DefaultMailbox,
		Lookback:      DefaultLookback,
		BatchSize:     DefaultBatchSize,
		RetentionDays: DefaultRetentionDays,
	}
}

// SPDX-License-Identifier: GPL-3.0-or-later
package domain

//go:generate mockgen -destination=mocks/persistence.go -package=mocks . DecisionStore,RuleStore
import (
	"errors"
	"time"
)

type Category string

const (
	Spam      = Category("SPAM")
	Useless   = Category("USELESS")
	Important = Category("IMPORTANT")
)

type Action string

const (
	Kept    = Action("KEPT")
	Deleted = Action("DELETED")
)

// ActionFor maps a category to the mailbox action it implies. Anything not
// known to be disposable is kept.
func ActionFor(category Category) Action {
	switch category {
	case Spam, Useless:
		return Deleted
	default:
		return Kept
	}
}

var (
	ErrDuplicateDecision = errors.New("decision already recorded for message")
	ErrDuplicateRule     = errors.New("rule already exists")
)

// Decision is the audit record of one triaged message. It is written once and
// never updated.
type Decision struct {
	Id          int64
	MessageID   string
	FromAddress string
	Subject     string
	Category    Category
	Reason      string
	Action      Action
	DecidedAt   time.Time
}

type DecisionStats struct {
	Total      int64
	ByCategory map[Category]int64
	ByAction   map[Action]int64
}

type DailyActivity struct {
	Day     time.Time
	Total   int64
	Deleted int64
}

type DecisionStore interface {
	DecisionExists(messageID string) (bool, error)
	// FindDecision returns nil without an error when no decision exists.
	FindDecision(messageID string) (*Decision, error)
	// SaveDecision returns ErrDuplicateDecision if the message already has one.
	SaveDecision(decision *Decision) error
	DecisionStats() (*DecisionStats, error)
	RecentActivity(days int) ([]*DailyActivity, error)
	RecentDecisions(limit, offset int) ([]*Decision, error)
	PurgeDeleted(olderThan time.Time) (int64, error)
}

type Keyword struct {
	Id            int64
	Keyword       string
	CaseSensitive bool
	CreatedAt     time.Time
}

type WhitelistEntry struct {
	Id          int64
	Domain      string
	Description string
	CreatedAt   time.Time
}

type RuleStore interface {
	WhitelistDomains() ([]string, error)
	Keywords() ([]*Keyword, error)
}

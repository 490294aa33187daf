// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/CrawX/go-imap-triage/domain"

	"github.com/sirupsen/logrus"
)

type dbDecision struct {
	Id          int64     `db:"id"`
	MessageID   string    `db:"message_id"`
	FromAddress string    `db:"from_address"`
	Subject     string    `db:"subject"`
	Category    string    `db:"category"`
	Reason      string    `db:"reason"`
	Action      string    `db:"action"`
	DecidedAt   time.Time `db:"decided_at"`
}

func (d *dbDecision) toDomain() *domain.Decision {
	return &domain.Decision{
		Id:          d.Id,
		MessageID:   d.MessageID,
		FromAddress: d.FromAddress,
		Subject:     d.Subject,
		Category:    domain.Category(d.Category),
		Reason:      d.Reason,
		Action:      domain.Action(d.Action),
		DecidedAt:   d.DecidedAt,
	}
}

const decisionColumns = `id, message_id, from_address, subject, category, reason, action, decided_at`

func (p *Persistence) DecisionExists(messageID string) (bool, error) {
	var count int
	err := p.db.Get(
		&count,
		p.db.Rebind(`SELECT COUNT(*) FROM processed_emails WHERE message_id = ?`),
		messageID,
	)
	if err != nil {
		return false, fmt.Errorf("could not query db: %w", err)
	}

	return count > 0, nil
}

func (p *Persistence) FindDecision(messageID string) (*domain.Decision, error) {
	d := dbDecision{}
	err := p.db.Get(
		&d,
		p.db.Rebind(`SELECT `+decisionColumns+` FROM processed_emails WHERE message_id = ?`),
		messageID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	return d.toDomain(), nil
}

// SaveDecision stores the record and fills in its id. The unique message_id
// column rejects a second record for the same message.
func (p *Persistence) SaveDecision(decision *domain.Decision) error {
	if decision.DecidedAt.IsZero() {
		decision.DecidedAt = time.Now()
	}
	decision.DecidedAt = decision.DecidedAt.UTC()

	err := p.db.QueryRowx(
		p.db.Rebind(`INSERT INTO processed_emails (message_id, from_address, subject, category, reason, action, decided_at) VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		decision.MessageID,
		decision.FromAddress,
		decision.Subject,
		string(decision.Category),
		decision.Reason,
		string(decision.Action),
		decision.DecidedAt,
	).Scan(&decision.Id)
	if isUniqueViolation(err) {
		return fmt.Errorf("could not save decision for %s: %w", decision.MessageID, domain.ErrDuplicateDecision)
	}
	if err != nil {
		return fmt.Errorf("could not save decision: %w", err)
	}

	p.l.WithFields(logrus.Fields{"id": decision.Id, "category": decision.Category, "action": decision.Action}).Debug("Persisted decision")
	return nil
}

func (p *Persistence) DecisionStats() (*domain.DecisionStats, error) {
	rows := []struct {
		Category string `db:"category"`
		Action   string `db:"action"`
		Count    int64  `db:"count"`
	}{}

	err := p.db.Select(
		&rows,
		`SELECT category, action, COUNT(*) AS count FROM processed_emails GROUP BY category, action`,
	)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	stats := &domain.DecisionStats{
		ByCategory: map[domain.Category]int64{domain.Spam: 0, domain.Useless: 0, domain.Important: 0},
		ByAction:   map[domain.Action]int64{domain.Kept: 0, domain.Deleted: 0},
	}
	for _, r := range rows {
		stats.Total += r.Count
		stats.ByCategory[domain.Category(r.Category)] += r.Count
		stats.ByAction[domain.Action(r.Action)] += r.Count
	}

	return stats, nil
}

// RecentActivity returns per day totals of the last days, newest day first.
// Days are UTC calendar days.
func (p *Persistence) RecentActivity(days int) ([]*domain.DailyActivity, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))

	rows := []struct {
		Action    string    `db:"action"`
		DecidedAt time.Time `db:"decided_at"`
	}{}
	err := p.db.Select(
		&rows,
		p.db.Rebind(`SELECT action, decided_at FROM processed_emails WHERE decided_at >= ?`),
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	byDay := map[time.Time]*domain.DailyActivity{}
	for _, r := range rows {
		day := r.DecidedAt.UTC().Truncate(24 * time.Hour)
		activity, ok := byDay[day]
		if !ok {
			activity = &domain.DailyActivity{Day: day}
			byDay[day] = activity
		}

		activity.Total++
		if domain.Action(r.Action) == domain.Deleted {
			activity.Deleted++
		}
	}

	result := make([]*domain.DailyActivity, 0, len(byDay))
	for _, activity := range byDay {
		result = append(result, activity)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Day.After(result[j].Day) })

	return result, nil
}

func (p *Persistence) RecentDecisions(limit, offset int) ([]*domain.Decision, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows := []dbDecision{}
	err := p.db.Select(
		&rows,
		p.db.Rebind(`SELECT `+decisionColumns+` FROM processed_emails ORDER BY decided_at DESC, id DESC LIMIT ? OFFSET ?`),
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	decisions := make([]*domain.Decision, 0, len(rows))
	for i := range rows {
		decisions = append(decisions, rows[i].toDomain())
	}

	return decisions, nil
}

// PurgeDeleted removes records of deleted messages decided before olderThan.
// Records of kept messages are never removed.
func (p *Persistence) PurgeDeleted(olderThan time.Time) (int64, error) {
	result, err := p.db.Exec(
		p.db.Rebind(`DELETE FROM processed_emails WHERE action = ? AND decided_at < ?`),
		string(domain.Deleted),
		olderThan.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("could not purge decisions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("could not get num of affected rows: %w", err)
	}

	p.l.WithFields(logrus.Fields{"removed": affected, "olderthan": olderThan.Format(time.RFC3339)}).Debug("Purged decisions")
	return affected, nil
}

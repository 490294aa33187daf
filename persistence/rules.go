// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/CrawX/go-imap-triage/domain"

	"github.com/sirupsen/logrus"
)

func (p *Persistence) WhitelistDomains() ([]string, error) {
	domains := []string{}
	err := p.db.Select(&domains, `SELECT domain FROM whitelist ORDER BY domain`)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	return domains, nil
}

func (p *Persistence) Whitelist() ([]*domain.WhitelistEntry, error) {
	rows := []struct {
		Id          int64     `db:"id"`
		Domain      string    `db:"domain"`
		Description string    `db:"description"`
		CreatedAt   time.Time `db:"created_at"`
	}{}
	err := p.db.Select(&rows, `SELECT id, domain, description, created_at FROM whitelist ORDER BY domain`)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	entries := make([]*domain.WhitelistEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, &domain.WhitelistEntry{
			Id:          r.Id,
			Domain:      r.Domain,
			Description: r.Description,
			CreatedAt:   r.CreatedAt,
		})
	}

	return entries, nil
}

// AddWhitelistDomains stores all entries or none of them. Domains are stored
// lower-cased so uniqueness is case insensitive.
func (p *Persistence) AddWhitelistDomains(entries []*domain.WhitelistEntry) error {
	tx, err := p.db.BeginTxx(context.TODO(), nil)
	if err != nil {
		return fmt.Errorf("could not start transaction: %w", err)
	}

	stmt, err := tx.Preparex(
		tx.Rebind(`INSERT INTO whitelist (domain, description, created_at) VALUES (?, ?, ?)`),
	)
	if err != nil {
		return txEnd(tx, fmt.Errorf("could not prepare statement: %w", err))
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, e := range entries {
		d := strings.ToLower(strings.TrimSpace(e.Domain))
		if len(d) == 0 {
			return txEnd(tx, fmt.Errorf("whitelist domain must not be empty"))
		}

		_, err = stmt.Exec(d, e.Description, now)
		if isUniqueViolation(err) {
			return txEnd(tx, fmt.Errorf("could not add %s: %w", d, domain.ErrDuplicateRule))
		}
		if err != nil {
			return txEnd(tx, fmt.Errorf("could not add whitelist domain: %w", err))
		}
	}

	err = txEnd(tx, nil)
	if err != nil {
		return err
	}

	p.l.WithField("count", len(entries)).Info("Persisted whitelist domains")
	return nil
}

func (p *Persistence) RemoveWhitelistDomain(d string) (bool, error) {
	result, err := p.db.Exec(
		p.db.Rebind(`DELETE FROM whitelist WHERE domain = ?`),
		strings.ToLower(strings.TrimSpace(d)),
	)
	if err != nil {
		return false, fmt.Errorf("could not remove whitelist domain: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("could not get num of affected rows: %w", err)
	}

	return affected > 0, nil
}

func (p *Persistence) Keywords() ([]*domain.Keyword, error) {
	rows := []struct {
		Id            int64     `db:"id"`
		Keyword       string    `db:"keyword"`
		CaseSensitive bool      `db:"case_sensitive"`
		CreatedAt     time.Time `db:"created_at"`
	}{}
	err := p.db.Select(&rows, `SELECT id, keyword, case_sensitive, created_at FROM keywords ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	keywords := make([]*domain.Keyword, 0, len(rows))
	for _, r := range rows {
		keywords = append(keywords, &domain.Keyword{
			Id:            r.Id,
			Keyword:       r.Keyword,
			CaseSensitive: r.CaseSensitive,
			CreatedAt:     r.CreatedAt,
		})
	}

	return keywords, nil
}

func (p *Persistence) AddKeywords(keywords []*domain.Keyword) error {
	tx, err := p.db.BeginTxx(context.TODO(), nil)
	if err != nil {
		return fmt.Errorf("could not start transaction: %w", err)
	}

	stmt, err := tx.Preparex(
		tx.Rebind(`INSERT INTO keywords (keyword, case_sensitive, created_at) VALUES (?, ?, ?)`),
	)
	if err != nil {
		return txEnd(tx, fmt.Errorf("could not prepare statement: %w", err))
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, k := range keywords {
		if len(strings.TrimSpace(k.Keyword)) == 0 {
			return txEnd(tx, fmt.Errorf("keyword must not be empty"))
		}

		_, err = stmt.Exec(k.Keyword, k.CaseSensitive, now)
		if isUniqueViolation(err) {
			return txEnd(tx, fmt.Errorf("could not add %s: %w", k.Keyword, domain.ErrDuplicateRule))
		}
		if err != nil {
			return txEnd(tx, fmt.Errorf("could not add keyword: %w", err))
		}
	}

	err = txEnd(tx, nil)
	if err != nil {
		return err
	}

	p.l.WithFields(logrus.Fields{"count": len(keywords)}).Info("Persisted keywords")
	return nil
}

func (p *Persistence) RemoveKeyword(keyword string) (bool, error) {
	result, err := p.db.Exec(p.db.Rebind(`DELETE FROM keywords WHERE keyword = ?`), keyword)
	if err != nil {
		return false, fmt.Errorf("could not remove keyword: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("could not get num of affected rows: %w", err)
	}

	return affected > 0, nil
}

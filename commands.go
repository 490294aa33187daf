// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/CrawX/go-imap-triage/admin"
	"github.com/CrawX/go-imap-triage/config"
	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/imapconnection"
	"github.com/CrawX/go-imap-triage/log"
	"github.com/CrawX/go-imap-triage/mail"
	"github.com/CrawX/go-imap-triage/persistence"
	"github.com/CrawX/go-imap-triage/scheduler"
	"github.com/CrawX/go-imap-triage/triage"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func triageOptions(conf *config.Config) []triage.ConfigFunc {
	configs := []triage.ConfigFunc{
		triage.Mailbox(conf.Mailbox),
		triage.Lookback(time.Duration(conf.LookbackHours) * time.Hour),
		triage.BatchSize(conf.BatchSize),
		triage.RetentionDays(conf.RetentionDays),
		triage.ProtectedDomains(conf.ProtectedDomains),
	}

	if conf.DryRun {
		configs = append(configs, triage.DryRun())
	}
	if conf.TrashFolder != "" {
		configs = append(configs, triage.TrashFolder(conf.TrashFolder))
	}
	if conf.ReconcilePending {
		configs = append(configs, triage.ReconcilePending())
	}

	return configs
}

func newTriage(ctx context.Context, conf *config.Config, p *persistence.Persistence) (*triage.Triage, func(), error) {
	classifier, closeClassifier, err := newClassifier(ctx, conf)
	if err != nil {
		return nil, nil, err
	}

	transport := imapconnection.NewImapTransport(conf.ImapHost, conf.User, conf.Password, conf.DisableTLS, conf.Compress)

	t, err := triage.NewTriage(p, p, transport, mail.NewDecoder(), classifier, triageOptions(conf)...)
	if err != nil {
		closeClassifier()
		return nil, nil, err
	}

	return t, closeClassifier, nil
}

func logResult(logger *logrus.Logger, result *triage.RunResult) {
	fields := logrus.Fields{
		"swept":          result.Swept,
		"found":          result.Found,
		"fetched":        result.Fetched,
		"decodefailures": result.DecodeFailures,
		"known":          result.AlreadyKnown,
		"reconciled":     result.Reconciled,
		"storefailures":  result.StoreFailures,
		"decided":        len(result.Decisions),
		"deleted":        result.Deleted,
		"kept":           result.Kept,
	}
	if result.DeleteErr != nil {
		fields["deleteerror"] = result.DeleteErr
	}
	if result.KeepErr != nil {
		fields["keeperror"] = result.KeepErr
	}

	if result.DeleteErr != nil || result.KeepErr != nil {
		logger.WithFields(fields).Warn("Triage run finished with errors")
	} else {
		logger.WithFields(fields).Info("Triage run finished")
	}
}

func runOnce(c *cli.Context) error {
	logger := log.Logger(log.LOG_MAIN)
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}

	p, err := persistence.NewPersistence(conf.Database)
	if err != nil {
		return fmt.Errorf("could not connect to database: %w", err)
	}
	defer p.Close()

	t, closeClassifier, err := newTriage(c.Context, conf, p)
	if err != nil {
		return err
	}
	defer closeClassifier()

	result, err := t.Run(c.Context)
	logResult(logger, result)
	if err != nil {
		return fmt.Errorf("triage run failed: %w", err)
	}

	return nil
}

func serve(c *cli.Context) error {
	logger := log.Logger(log.LOG_MAIN)
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := persistence.NewPersistence(conf.Database)
	if err != nil {
		return fmt.Errorf("could not connect to database: %w", err)
	}
	defer p.Close()

	t, closeClassifier, err := newTriage(ctx, conf, p)
	if err != nil {
		return err
	}
	defer closeClassifier()

	schedulerOpts := []scheduler.Option{}
	if conf.RunAtStartup {
		schedulerOpts = append(schedulerOpts, scheduler.RunAtStartup())
	}

	s, err := scheduler.NewScheduler(func(ctx context.Context) error {
		result, err := t.Run(ctx)
		logResult(logger, result)
		return err
	}, time.Duration(conf.IntervalMinutes)*time.Minute, schedulerOpts...)
	if err != nil {
		return err
	}

	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	defer signal.Stop(usr1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-usr1:
				if !s.Trigger() {
					logger.Info("Ignoring SIGUSR1, a run is already in progress or the scheduler stopped")
				}
			}
		}
	}()

	adminErr := make(chan error, 1)
	if conf.AdminListen != "" {
		server := admin.NewServer(conf.AdminListen, s, p)
		go func() {
			err := server.Start(ctx)
			if err != nil {
				logger.WithField("error", err).Error("Admin server failed, shutting down")
				stop()
			}
			adminErr <- err
		}()
	} else {
		close(adminErr)
	}

	logger.WithFields(logrus.Fields{"mailbox": conf.Mailbox, "interval": conf.IntervalMinutes, "classifier": conf.Classifier, "dryrun": conf.DryRun}).Info("Serving")
	s.Start(ctx)

	err = <-adminErr

	logger.Info("Waiting for running triage to finish")
	s.Wait()

	return err
}

func sweep(c *cli.Context) error {
	logger := log.Logger(log.LOG_MAIN)
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}

	p, err := persistence.NewPersistence(conf.Database)
	if err != nil {
		return fmt.Errorf("could not connect to database: %w", err)
	}
	defer p.Close()

	// sweeping only touches the decision store
	t, err := triage.NewTriage(p, p, nil, nil, nil, triageOptions(conf)...)
	if err != nil {
		return err
	}

	removed, err := t.Sweep()
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{"removed": removed, "retentiondays": conf.RetentionDays}).Info("Swept decision records")
	return nil
}

func stats(c *cli.Context) error {
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}

	p, err := persistence.NewPersistence(conf.Database)
	if err != nil {
		return fmt.Errorf("could not connect to database: %w", err)
	}
	defer p.Close()

	s, err := p.DecisionStats()
	if err != nil {
		return err
	}

	activity, err := p.RecentActivity(c.Int("days"))
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Total decisions: %d\n", s.Total)
	for _, category := range []domain.Category{domain.Spam, domain.Useless, domain.Important} {
		fmt.Fprintf(out, "  %-10s %d\n", category, s.ByCategory[category])
	}
	for _, action := range []domain.Action{domain.Deleted, domain.Kept} {
		fmt.Fprintf(out, "  %-10s %d\n", action, s.ByAction[action])
	}

	fmt.Fprintf(out, "Last %d days:\n", c.Int("days"))
	for _, a := range activity {
		fmt.Fprintf(out, "  %s  %d processed, %d deleted\n", a.Day.Format("2006-01-02"), a.Total, a.Deleted)
	}

	return nil
}

func withRules(c *cli.Context, f func(p *persistence.Persistence) error) error {
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}

	p, err := persistence.NewPersistence(conf.Database)
	if err != nil {
		return fmt.Errorf("could not connect to database: %w", err)
	}
	defer p.Close()

	return f(p)
}

func whitelistAdd(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one domain is required")
	}

	return withRules(c, func(p *persistence.Persistence) error {
		entries := []*domain.WhitelistEntry{}
		for _, d := range c.Args().Slice() {
			entries = append(entries, &domain.WhitelistEntry{Domain: d, Description: c.String("description")})
		}

		return p.AddWhitelistDomains(entries)
	})
}

func whitelistList(c *cli.Context) error {
	return withRules(c, func(p *persistence.Persistence) error {
		entries, err := p.Whitelist()
		if err != nil {
			return err
		}

		for _, e := range entries {
			if e.Description != "" {
				fmt.Fprintf(c.App.Writer, "%s\t%s\n", e.Domain, e.Description)
			} else {
				fmt.Fprintln(c.App.Writer, e.Domain)
			}
		}
		return nil
	})
}

func whitelistRemove(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one domain is required")
	}

	return withRules(c, func(p *persistence.Persistence) error {
		removed, err := p.RemoveWhitelistDomain(c.Args().First())
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%s is not whitelisted", c.Args().First())
		}
		return nil
	})
}

func keywordAdd(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one keyword is required")
	}

	return withRules(c, func(p *persistence.Persistence) error {
		keywords := []*domain.Keyword{}
		for _, k := range c.Args().Slice() {
			keywords = append(keywords, &domain.Keyword{Keyword: k, CaseSensitive: c.Bool("case-sensitive")})
		}

		return p.AddKeywords(keywords)
	})
}

func keywordList(c *cli.Context) error {
	return withRules(c, func(p *persistence.Persistence) error {
		keywords, err := p.Keywords()
		if err != nil {
			return err
		}

		for _, k := range keywords {
			mode := "case insensitive"
			if k.CaseSensitive {
				mode = "case sensitive"
			}
			fmt.Fprintf(c.App.Writer, "%s\t%s\n", k.Keyword, mode)
		}
		return nil
	})
}

func keywordRemove(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one keyword is required")
	}

	return withRules(c, func(p *persistence.Persistence) error {
		removed, err := p.RemoveKeyword(c.Args().First())
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%q is not a banned keyword", strings.TrimSpace(c.Args().First()))
		}
		return nil
	})
}

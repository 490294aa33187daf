// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"os"

	"github.com/CrawX/go-imap-triage/config"
	"github.com/CrawX/go-imap-triage/log"

	"github.com/urfave/cli/v2"
)

func main() {
	log.InitLogging("info")
	logger := log.Logger(log.LOG_MAIN)

	app := &cli.App{
		Name:  "imap-triage",
		Usage: "sort an IMAP inbox into spam, useless and important mail",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "config.toml",
				Usage: "toml configuration file",
			},
			&cli.StringFlag{
				Name:  "env",
				Value: ".env",
				Usage: "dotenv file with secrets, variables already set take precedence",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "classify and log but never touch the mailbox or the decision store",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run triage periodically and serve the admin endpoints",
				Action: serve,
			},
			{
				Name:   "run",
				Usage:  "run a single triage cycle and exit",
				Action: runOnce,
			},
			{
				Name:   "sweep",
				Usage:  "remove expired decision records",
				Action: sweep,
			},
			{
				Name:   "stats",
				Usage:  "print decision statistics",
				Action: stats,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "days", Value: 7, Usage: "days of activity to show"},
				},
			},
			{
				Name:  "whitelist",
				Usage: "manage whitelisted sender domains",
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "whitelist one or more domains",
						ArgsUsage: "domain...",
						Action:    whitelistAdd,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "description", Usage: "note stored with the domains"},
						},
					},
					{Name: "list", Usage: "list whitelisted domains", Action: whitelistList},
					{Name: "remove", Usage: "remove a whitelisted domain", ArgsUsage: "domain", Action: whitelistRemove},
				},
			},
			{
				Name:  "keyword",
				Usage: "manage banned keywords",
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "ban one or more keywords",
						ArgsUsage: "keyword...",
						Action:    keywordAdd,
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "case-sensitive", Usage: "match the keywords case sensitively"},
						},
					},
					{Name: "list", Usage: "list banned keywords", Action: keywordList},
					{Name: "remove", Usage: "remove a banned keyword", ArgsUsage: "keyword", Action: keywordRemove},
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		logger.WithField("error", err).Fatal("Command failed")
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	err := config.LoadEnvFile(c.String("env"))
	if err != nil {
		return nil, err
	}

	conf, err := config.ReadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.Bool("dry-run") {
		conf.DryRun = true
	}

	if conf.Loglevel != nil {
		log.SetLogLevel(*conf.Loglevel)
	}

	return conf, nil
}

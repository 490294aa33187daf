// SPDX-License-Identifier: GPL-3.0-or-later
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	ClassifierOpenAI       = "openai"
	ClassifierBedrock      = "bedrock"
	ClassifierGemini       = "gemini"
	ClassifierSpamassassin = "spamassassin"
	ClassifierRspamd       = "rspamd"
)

type OpenAI struct {
	ApiKey  string
	Model   string
	BaseURL string
}

type Bedrock struct {
	Region  string
	ModelID string
}

type Gemini struct {
	ApiKey string
	Model  string
}

type Config struct {
	// Database is a sqlite file name or a postgres:// URL.
	Database string

	ImapHost    string
	User        string
	Password    string
	Mailbox     string
	DisableTLS  bool
	Compress    bool
	TrashFolder string

	LookbackHours    int
	BatchSize        int
	RetentionDays    int
	IntervalMinutes  int
	RunAtStartup     bool
	DryRun           bool
	ReconcilePending bool

	ProtectedDomains []string

	Classifier         string
	ClassifierAttempts int
	MaxBodyChars       int
	MaxTokens          int

	OpenAI  OpenAI
	Bedrock Bedrock
	Gemini  Gemini

	SpamassassinHost string
	RspamdController string
	RspamdPassword   string

	AdminListen string

	Loglevel *string
}

func defaults() *Config {
	return &Config{
		Database:           "triage.db",
		Mailbox:            "INBOX",
		LookbackHours:      48,
		BatchSize:          100,
		RetentionDays:      7,
		IntervalMinutes:    15,
		Classifier:         ClassifierOpenAI,
		ClassifierAttempts: 1,
		MaxBodyChars:       1000,
		MaxTokens:          500,
		OpenAI: OpenAI{
			Model: "gpt-4o-mini",
		},
		Bedrock: Bedrock{
			Region:  "us-east-1",
			ModelID: "anthropic.claude-3-5-sonnet-20241022-v2:0",
		},
		Gemini: Gemini{
			Model: "gemini-1.5-flash",
		},
		AdminListen: "127.0.0.1:8025",
	}
}

// LoadEnvFile loads a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(filename string) error {
	err := godotenv.Load(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not load env file: %w", err)
	}

	return nil
}

// ReadConfig decodes the toml file over the defaults, applies the environment
// and validates the result. The file may be absent when the environment
// supplies everything required.
func ReadConfig(filename string) (*Config, error) {
	return readConfig(filename, os.LookupEnv)
}

func readConfig(filename string, lookupEnv func(string) (string, bool)) (*Config, error) {
	config := defaults()

	md, err := toml.DecodeFile(filename, config)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	err = checkUndecoded(md.Undecoded())
	if err != nil {
		return nil, err
	}

	err = config.applyEnv(lookupEnv)
	if err != nil {
		return nil, err
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

// checkUndecoded rejects keys that match no field, e.g. a top-level key
// written below a table header.
func checkUndecoded(keys []toml.Key) error {
	if len(keys) == 0 {
		return nil
	}

	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, key.String())
	}

	return fmt.Errorf("unknown keys in config file: %s", strings.Join(names, ", "))
}

func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) error {
	stringVars := map[string]*string{
		"DATABASE_URL":           &c.Database,
		"TRIAGE_IMAP_HOST":       &c.ImapHost,
		"TRIAGE_IMAP_USER":       &c.User,
		"TRIAGE_IMAP_PASSWORD":   &c.Password,
		"TRIAGE_OPENAI_API_KEY":  &c.OpenAI.ApiKey,
		"TRIAGE_GEMINI_API_KEY":  &c.Gemini.ApiKey,
		"TRIAGE_RSPAMD_PASSWORD": &c.RspamdPassword,
	}
	for name, field := range stringVars {
		if v, ok := lookupEnv(name); ok && len(strings.TrimSpace(v)) > 0 {
			*field = strings.TrimSpace(v)
		}
	}

	if v, ok := lookupEnv("PROTECTED_DOMAINS"); ok {
		c.ProtectedDomains = append(c.ProtectedDomains, SplitList(v)...)
	}

	if v, ok := lookupEnv("SCHEDULER_INTERVAL_MINUTES"); ok && len(strings.TrimSpace(v)) > 0 {
		minutes, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("SCHEDULER_INTERVAL_MINUTES must be a number: %w", err)
		}
		c.IntervalMinutes = minutes
	}

	return nil
}

// SplitList splits a comma separated list, dropping blank entries.
func SplitList(value string) []string {
	result := []string{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if len(part) > 0 {
			result = append(result, part)
		}
	}

	return result
}

func (c *Config) validate() error {
	if err := validateNonEmptyStringField(c.Database, "Database must not be empty, set to a sqlite filename or a postgres URL"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.ImapHost, "ImapHost must not be empty, set to host:port of the imap server"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.User, "User must not be empty, set to username on the imap server"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.Password, "Password must not be empty, set to password of User on the imap server"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.Mailbox, "Mailbox must not be empty"); err != nil {
		return err
	}

	if c.LookbackHours <= 0 {
		return fmt.Errorf("LookbackHours must be positive, got %d", c.LookbackHours)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BatchSize must be positive, got %d", c.BatchSize)
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("RetentionDays must be positive, got %d", c.RetentionDays)
	}
	if c.IntervalMinutes <= 0 {
		return fmt.Errorf("IntervalMinutes must be positive, got %d", c.IntervalMinutes)
	}
	if c.ClassifierAttempts <= 0 {
		return fmt.Errorf("ClassifierAttempts must be positive, got %d", c.ClassifierAttempts)
	}

	switch c.Classifier {
	case ClassifierOpenAI:
		return validateNonEmptyStringField(c.OpenAI.ApiKey, "OpenAI.ApiKey must be set when using the openai classifier")
	case ClassifierBedrock:
		if err := validateNonEmptyStringField(c.Bedrock.Region, "Bedrock.Region must be set when using the bedrock classifier"); err != nil {
			return err
		}
		return validateNonEmptyStringField(c.Bedrock.ModelID, "Bedrock.ModelID must be set when using the bedrock classifier")
	case ClassifierGemini:
		return validateNonEmptyStringField(c.Gemini.ApiKey, "Gemini.ApiKey must be set when using the gemini classifier")
	case ClassifierSpamassassin:
		return validateNonEmptyStringField(c.SpamassassinHost, "SpamassassinHost must be set when using the spamassassin classifier")
	case ClassifierRspamd:
		if err := validateNonEmptyStringField(c.RspamdController, "RspamdController must be set when using the rspamd classifier"); err != nil {
			return err
		}
		return validateNonEmptyStringField(c.RspamdPassword, "RspamdPassword must be set if RspamdController is set")
	default:
		return fmt.Errorf("unknown Classifier %q, use one of openai, bedrock, gemini, spamassassin, rspamd", c.Classifier)
	}
}

func validateNonEmptyStringField(field string, err string) error {
	if len(strings.TrimSpace(field)) == 0 {
		return errors.New(err)
	}

	return nil
}

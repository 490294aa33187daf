// SPDX-License-Identifier: GPL-3.0-or-later
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	filename := filepath.Join(t.TempDir(), "config.toml")
	assert.NoError(t, os.WriteFile(filename, []byte(content), 0600))
	return filename
}

const minimalConfig = `
ImapHost = "imap.example.com:993"
User = "me@example.com"
Password = "secret"
`

const openAITable = `
[OpenAI]
ApiKey = "sk-test"
`

// withKeys places top-level keys before the first table header.
func withKeys(keys string) string {
	return minimalConfig + keys + "\n" + openAITable
}

func TestReadConfig_Defaults(t *testing.T) {
	cfg, err := readConfig(writeConfig(t, withKeys("")), env(nil))
	assert.NoError(t, err)

	assert.Equal(t, "triage.db", cfg.Database)
	assert.Equal(t, "INBOX", cfg.Mailbox)
	assert.Equal(t, 48, cfg.LookbackHours)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 7, cfg.RetentionDays)
	assert.Equal(t, 15, cfg.IntervalMinutes)
	assert.Equal(t, 1000, cfg.MaxBodyChars)
	assert.Equal(t, ClassifierOpenAI, cfg.Classifier)
	assert.False(t, cfg.DryRun)
	assert.False(t, cfg.RunAtStartup)
	assert.Nil(t, cfg.Loglevel)
}

func TestReadConfig_MissingFileUsesEnvironment(t *testing.T) {
	cfg, err := readConfig(filepath.Join(t.TempDir(), "absent.toml"), env(map[string]string{
		"TRIAGE_IMAP_HOST":           "imap.example.com:993",
		"TRIAGE_IMAP_USER":           "me",
		"TRIAGE_IMAP_PASSWORD":       "pw",
		"TRIAGE_OPENAI_API_KEY":      "sk",
		"DATABASE_URL":               "postgres://triage@localhost/triage",
		"PROTECTED_DOMAINS":          " impots.gouv.fr, ,urssaf ",
		"SCHEDULER_INTERVAL_MINUTES": "5",
	}))
	assert.NoError(t, err)

	assert.Equal(t, "postgres://triage@localhost/triage", cfg.Database)
	assert.Equal(t, []string{"impots.gouv.fr", "urssaf"}, cfg.ProtectedDomains)
	assert.Equal(t, 5, cfg.IntervalMinutes)
	assert.Equal(t, "pw", cfg.Password)
}

func TestReadConfig_EnvAppendsProtectedDomains(t *testing.T) {
	content := withKeys("ProtectedDomains = [\"banque\"]")
	cfg, err := readConfig(writeConfig(t, content), env(map[string]string{"PROTECTED_DOMAINS": "urssaf"}))
	assert.NoError(t, err)
	assert.Equal(t, []string{"banque", "urssaf"}, cfg.ProtectedDomains)
}

func TestReadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		err     string
	}{
		{"nohost", `User = "u"`, nil, "ImapHost must not be empty, set to host:port of the imap server"},
		{"nopassword", "ImapHost = \"h:993\"\nUser = \"u\"", nil, "Password must not be empty, set to password of User on the imap server"},
		{"nokey", "ImapHost = \"h:993\"\nUser = \"u\"\nPassword = \"p\"", nil, "OpenAI.ApiKey must be set when using the openai classifier"},
		{"unknownclassifier", withKeys("Classifier = \"magic\""), nil, `unknown Classifier "magic", use one of openai, bedrock, gemini, spamassassin, rspamd`},
		{"rspamdnopassword", withKeys("Classifier = \"rspamd\"\nRspamdController = \"http://localhost:11334\""), nil, "RspamdPassword must be set if RspamdController is set"},
		{"batchsize", withKeys("BatchSize = 0"), nil, "BatchSize must be positive, got 0"},
		{"misplacedkeys", withKeys("") + "BatchSize = 0\nClassifier = \"magic\"\n", nil, "unknown keys in config file: OpenAI.BatchSize, OpenAI.Classifier"},
		{"typo", withKeys("Mailbx = \"Archive\""), nil, "unknown keys in config file: Mailbx"},
		{"interval", withKeys(""), map[string]string{"SCHEDULER_INTERVAL_MINUTES": "x"}, `SCHEDULER_INTERVAL_MINUTES must be a number: strconv.Atoi: parsing "x": invalid syntax`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := readConfig(writeConfig(t, tc.content), env(tc.env))
			assert.Nil(t, cfg)
			assert.EqualError(t, err, tc.err)
		})
	}
}

func TestReadConfig_BrokenToml(t *testing.T) {
	_, err := readConfig(writeConfig(t, "ImapHost = "), env(nil))
	assert.ErrorContains(t, err, "could not read config file")
}

func TestLoadEnvFile(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	filename := filepath.Join(t.TempDir(), ".env")
	assert.NoError(t, os.WriteFile(filename, []byte("TRIAGE_TEST_LOADENV=loaded\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("TRIAGE_TEST_LOADENV") })

	assert.NoError(t, LoadEnvFile(filename))
	assert.Equal(t, "loaded", os.Getenv("TRIAGE_TEST_LOADENV"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{}, SplitList(""))
	assert.Equal(t, []string{"a", "b"}, SplitList("a, b,"))
}

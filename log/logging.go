// SPDX-License-Identifier: GPL-3.0-or-later
package log

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	LOG_MAIN        = "MA"
	LOG_TRIAGE      = "TR"
	LOG_CLASSIFIER  = "AI"
	LOG_PERSISTENCE = "PI"
	LOG_IMAP        = "IM"
	LOG_SCHEDULER   = "SC"
	LOG_ADMIN       = "AD"
)

var components = []string{
	LOG_MAIN,
	LOG_TRIAGE,
	LOG_CLASSIFIER,
	LOG_PERSISTENCE,
	LOG_IMAP,
	LOG_SCHEDULER,
	LOG_ADMIN,
}

var (
	mu      sync.RWMutex
	loggers map[string]*logrus.Logger
)

// PrefixFormatter prepends the component tag to every line of the wrapped text formatter.
type PrefixFormatter struct {
	formatter logrus.Formatter
	prefix    []byte
}

func NewPrefixFormatter(prefix string) *PrefixFormatter {
	formatter := &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   strings.Contains(runtime.GOOS, "windows"),
	}

	return &PrefixFormatter{
		formatter: formatter,
		prefix:    []byte(fmt.Sprintf("%s:\t", prefix)),
	}
}

func (f *PrefixFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	text, err := f.formatter.Format(entry)
	if err != nil {
		return nil, err
	}

	line := make([]byte, 0, len(f.prefix)+len(text))
	line = append(line, f.prefix...)
	return append(line, text...), nil
}

func ParseLevel(loglevel string) logrus.Level {
	level, err := logrus.ParseLevel(strings.TrimSpace(loglevel))
	if err != nil {
		return logrus.InfoLevel
	}

	return level
}

func InitLogging(loglevel string) {
	mu.Lock()
	defer mu.Unlock()

	loggers = make(map[string]*logrus.Logger, len(components))
	for _, prefix := range components {
		l := logrus.New()
		l.Level = ParseLevel(loglevel)
		l.Formatter = NewPrefixFormatter(prefix)
		loggers[prefix] = l
	}
}

func SetLogLevel(loglevel string) {
	mu.RLock()
	defer mu.RUnlock()

	for _, l := range loggers {
		l.SetLevel(ParseLevel(loglevel))
	}
}

// Logger returns the logger of a component. Logging is initialised at info level
// on first use so packages can be exercised without going through main.
func Logger(component string) *logrus.Logger {
	mu.RLock()
	initialised := loggers != nil
	mu.RUnlock()
	if !initialised {
		InitLogging("info")
	}

	mu.RLock()
	defer mu.RUnlock()
	l, ok := loggers[component]
	if !ok {
		panic("Logger " + component + " unknown")
	}

	return l
}

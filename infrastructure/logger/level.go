package logger

import "strings"

// Level is the threshold at which a logger is configured. Messages below
// the configured level are filtered out.
type Level uint32

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

// Each level has a configuration name and the three-letter tag that is
// stamped on log lines.
var levelNames = [...]string{"trace", "debug", "info", "warn", "error", "critical", "off"}
var levelTags = [...]string{"TRC", "DBG", "INF", "WRN", "ERR", "CRT", "OFF"}

// String returns the tag of the level as it appears in log messages.
func (l Level) String() string {
	if int(l) >= len(levelTags) {
		return levelTags[LevelOff]
	}
	return levelTags[l]
}

// LevelFromString parses a configuration string into a Level. Both the
// configuration name and the log-line tag are accepted, case
// insensitively. If the input matches neither, the info level and false
// are returned.
func LevelFromString(s string) (Level, bool) {
	s = strings.ToLower(s)
	for i, name := range levelNames {
		if s == name || s == strings.ToLower(levelTags[i]) {
			return Level(i), true
		}
	}
	return LevelInfo, false
}

package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// VocabularyChanged is true when the keyword list differs. New sessions
	// pick up the new keywords; running sessions keep the old corrector.
	VocabularyChanged bool
	NewKeywords       []string

	ChunkIntervalChanged bool
	NewChunkInterval     SessionConfig
}

// Changed reports whether any hot-reloadable field differs.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.VocabularyChanged || d.ChunkIntervalChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.Vocabulary.Keywords, new.Vocabulary.Keywords) {
		d.VocabularyChanged = true
		d.NewKeywords = new.Vocabulary.Keywords
	}

	if old.Session.ChunkInterval() != new.Session.ChunkInterval() {
		d.ChunkIntervalChanged = true
		d.NewChunkInterval = new.Session
	}

	return d
}

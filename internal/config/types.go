package config

import "time"

type Config struct {
	Environment string
	Port        string

	// knowledge store
	StoreDriver        string // postgres or sqlite
	DatabaseURL        string
	SQLitePath         string
	EmbeddingDimension int

	// chat endpoint
	RedisURL      string
	ChatRateLimit string // ulule/limiter format, e.g. "30-M"
	CORSOrigins   []string

	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration
	StreamTimeout   time.Duration
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Flags are the options of one ingester subcommand
type Flags struct {
	Path    string
	Type    string
	Profile string
}

// Profile tunes ingestion; loaded from YAML, every field optional
type Profile struct {
	Chunking      ChunkingProfile `yaml:"chunking"`
	Throttle      ThrottleProfile `yaml:"throttle"`
	ScoreKeywords []string        `yaml:"score_keywords"`
}

type ChunkingProfile struct {
	MaxChars int `yaml:"max_chars"`
	MinChars int `yaml:"min_chars"`
}

type ThrottleProfile struct {
	DelayMS    int `yaml:"delay_ms"`
	PauseEvery int `yaml:"pause_every"`
	PauseMS    int `yaml:"pause_ms"`
}

func (t ThrottleProfile) Delay() time.Duration {
	return time.Duration(t.DelayMS) * time.Millisecond
}

func (t ThrottleProfile) Pause() time.Duration {
	return time.Duration(t.PauseMS) * time.Millisecond
}

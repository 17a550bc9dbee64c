package streamplay

import "time"

// Config holds the Player's tunables. The zero value is never used directly;
// construct with NewConfig, which applies the package defaults before
// Options are applied.
//
// Grounded on the functional-options idiom used throughout services with
// envconfig-backed constructors, rather than a bare struct literal, so
// callers (and cmd/streamplay's envconfig-loaded overrides) can override
// just the fields they care about.
type Config struct {
	VideoQueueCapacity int
	AudioQueueCapacity int

	ReconnectMaxAttempts int
	ReconnectDelayMs     int

	StatsInterval     time.Duration
	AudioPumpInterval time.Duration
}

// Option mutates a Config under construction.
type Option func(*Config)

// NewConfig builds a Config from the package's documented defaults plus any
// Options.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		VideoQueueCapacity:   90,
		AudioQueueCapacity:   180,
		ReconnectMaxAttempts: defaultMaxReconnectAttempts,
		ReconnectDelayMs:     defaultReconnectDelayMs,
		StatsInterval:        400 * time.Millisecond,
		AudioPumpInterval:    20 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithVideoQueueCapacity overrides the video (DropOldest) queue's capacity.
func WithVideoQueueCapacity(n int) Option {
	return func(c *Config) { c.VideoQueueCapacity = n }
}

// WithAudioQueueCapacity overrides the audio (Block) queue's capacity.
func WithAudioQueueCapacity(n int) Option {
	return func(c *Config) { c.AudioQueueCapacity = n }
}

// WithReconnectMaxAttempts overrides the initial reconnect attempt budget.
func WithReconnectMaxAttempts(n int) Option {
	return func(c *Config) { c.ReconnectMaxAttempts = n }
}

// WithReconnectDelayMs overrides the initial inter-attempt delay.
func WithReconnectDelayMs(ms int) Option {
	return func(c *Config) { c.ReconnectDelayMs = ms }
}

// WithStatsInterval overrides the stats-timer tick period.
func WithStatsInterval(d time.Duration) Option {
	return func(c *Config) { c.StatsInterval = d }
}

// WithAudioPumpInterval overrides the audio write-pump tick period.
func WithAudioPumpInterval(d time.Duration) Option {
	return func(c *Config) { c.AudioPumpInterval = d }
}

package syncer

import "time"

// Config controls the timing of a list's sync session.
type Config struct {
	// Endpoint is the spreadsheet web app URL. A list's own RemoteURL
	// takes precedence.
	Endpoint string

	// InitialPullDelay is the wait between opening a session and its first
	// pull. Zero pulls immediately.
	InitialPullDelay time.Duration
	PullInterval     time.Duration
	// GraceWindow suppresses automatic pulls this long after a local change.
	GraceWindow     time.Duration
	PushDebounce    time.Duration
	DoneResetDelay  time.Duration
	ErrorResetDelay time.Duration
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		InitialPullDelay: 500 * time.Millisecond,
		PullInterval:     12 * time.Second,
		GraceWindow:      5 * time.Second,
		PushDebounce:     800 * time.Millisecond,
		DoneResetDelay:   2 * time.Second,
		ErrorResetDelay:  3 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PullInterval <= 0 {
		c.PullInterval = d.PullInterval
	}
	if c.GraceWindow <= 0 {
		c.GraceWindow = d.GraceWindow
	}
	if c.PushDebounce <= 0 {
		c.PushDebounce = d.PushDebounce
	}
	if c.DoneResetDelay <= 0 {
		c.DoneResetDelay = d.DoneResetDelay
	}
	if c.ErrorResetDelay <= 0 {
		c.ErrorResetDelay = d.ErrorResetDelay
	}
	if c.InitialPullDelay < 0 {
		c.InitialPullDelay = 0
	}
	return c
}

package submit

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Default intervals.
const (
	DefaultResubmitInterval = 2 * time.Second
	DefaultPollInterval     = 2 * time.Second
)

// Config configures a Submitter.
type Config struct {
	// ResubmitInterval is the delay between re-broadcasts of the payload.
	ResubmitInterval time.Duration
	// PollInterval is the delay between signature status polls.
	PollInterval time.Duration
	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger
}

// DefaultConfig returns the default submission configuration.
func DefaultConfig() Config {
	return Config{
		ResubmitInterval: DefaultResubmitInterval,
		PollInterval:     DefaultPollInterval,
	}
}

func (c Config) withDefaults() Config {
	if c.ResubmitInterval <= 0 {
		c.ResubmitInterval = DefaultResubmitInterval
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}

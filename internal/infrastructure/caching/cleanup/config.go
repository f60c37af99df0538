package cleanup

import (
	"time"

	"github.com/afritokeni/ussd-gateway/pkg/config"
)

// Config holds sweep worker configuration, sourced from the central config package.
type Config struct {
	SweepInterval    time.Duration
	VerboseReporting bool
}

// NewConfig reads the already-initialized variables in /pkg/config.
func NewConfig() *Config {
	return &Config{
		SweepInterval:    config.SweepInterval,
		VerboseReporting: config.SweepVerbose,
	}
}

package scheduler

import "time"

// Config tunes the reconciliation sweep.
type Config struct {
	SweepInterval time.Duration `env:"SCHEDULER_SWEEP_INTERVAL" envDefault:"60s"` // SweepInterval is the time between reconciliation passes.
}

func (c Config) withDefaults() Config {
	if c.SweepInterval <= 0 {
		c.SweepInterval = 60 * time.Second
	}
	return c
}

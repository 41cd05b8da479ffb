package eventbus

import "time"

// Config tunes bus delivery behavior.
type Config struct {
	BufferSize      int           `env:"EVENTBUS_BUFFER_SIZE" envDefault:"256"`      // BufferSize is the per-subscriber channel capacity.
	MaxRedeliveries int           `env:"EVENTBUS_MAX_REDELIVERIES" envDefault:"3"`   // MaxRedeliveries is how many times a failed handler is retried per message.
	RedeliveryDelay time.Duration `env:"EVENTBUS_REDELIVERY_DELAY" envDefault:"1s"`  // RedeliveryDelay is the wait before a redelivery.
	HandlerTimeout  time.Duration `env:"EVENTBUS_HANDLER_TIMEOUT" envDefault:"30s"`  // HandlerTimeout bounds a single handler invocation.
}

func (c Config) withDefaults() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = 256
	}
	if c.MaxRedeliveries < 0 {
		c.MaxRedeliveries = 0
	}
	if c.RedeliveryDelay <= 0 {
		c.RedeliveryDelay = time.Second
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 30 * time.Second
	}
	return c
}

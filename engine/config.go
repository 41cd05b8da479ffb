package engine

import "time"

// Config tunes the lifecycle engine.
type Config struct {
	MaxConcurrentDeliveries int           `env:"ENGINE_MAX_CONCURRENT_DELIVERIES" envDefault:"16"` // MaxConcurrentDeliveries caps in-flight async delivery attempts.
	DeliveryTimeout         time.Duration `env:"ENGINE_DELIVERY_TIMEOUT" envDefault:"30s"`         // DeliveryTimeout bounds a detached first delivery attempt.
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrentDeliveries <= 0 {
		c.MaxConcurrentDeliveries = 16
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = 30 * time.Second
	}
	return c
}

package resilience

import "time"

// Config tunes the circuit breaker. Calls are never retried: a failed call is
// reported once and the caller decides what to do with it.
type Config struct {
	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

const (
	defaultMinRequests      uint32  = 10
	defaultFailureRatio     float64 = 0.5
	defaultOpenTimeout              = 30 * time.Second
	defaultHalfOpenMaxCalls uint32  = 2
)

func DefaultConfig() Config {
	return Config{
		BreakerEnabled:          true,
		BreakerMinRequests:      defaultMinRequests,
		BreakerFailureRatio:     defaultFailureRatio,
		BreakerOpenTimeout:      defaultOpenTimeout,
		BreakerHalfOpenMaxCalls: defaultHalfOpenMaxCalls,
	}
}

// withDefaults fills unset or out-of-range fields. BreakerEnabled is kept as given.
func (c Config) withDefaults() Config {
	c.BreakerMinRequests = orDefault(c.BreakerMinRequests, defaultMinRequests)
	c.BreakerOpenTimeout = orDefault(c.BreakerOpenTimeout, defaultOpenTimeout)
	c.BreakerHalfOpenMaxCalls = orDefault(c.BreakerHalfOpenMaxCalls, defaultHalfOpenMaxCalls)
	if c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = 0
	}
	c.BreakerFailureRatio = orDefault(c.BreakerFailureRatio, defaultFailureRatio)
	return c
}

func orDefault[T uint32 | float64 | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

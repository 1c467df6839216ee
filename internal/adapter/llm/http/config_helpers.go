package http

import "time"

// ParseTimeout parses a duration string, falling back when it is empty
// or malformed.
func ParseTimeout(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// BuildRetryConfig assembles a RetryConfig from raw settings, taking
// defaults for anything unset or malformed.
func BuildRetryConfig(maxRetries int, initialBackoff, maxBackoff string, multiplier float64) RetryConfig {
	conf := DefaultRetryConfig()
	if maxRetries > 0 {
		conf.MaxRetries = maxRetries
	}
	conf.InitialBackoff = ParseTimeout(initialBackoff, conf.InitialBackoff)
	conf.MaxBackoff = ParseTimeout(maxBackoff, conf.MaxBackoff)
	if multiplier > 1 {
		conf.Multiplier = multiplier
	}
	return conf
}

package animation

import "time"

// DefaultConfig flashes twice a second for six seconds.
func DefaultConfig() Config {
	return Config{
		Interval: 500 * time.Millisecond,
		Duration: 6 * time.Second,
	}
}

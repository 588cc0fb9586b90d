package accounts

import (
	"time"

	"code.kestrelchain.io/kestrel/config/encoding"
	"code.kestrelchain.io/kestrel/logging"
)

const namedLogger = "accounts"

// DefaultShrinkRatio is the value log garbage collection threshold applied
// when the operator does not override it.
const DefaultShrinkRatio = 0.8

// Config represents the configuration of the accounts store.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	// MaintenanceInterval is how often the background service runs a
	// flush/clean/shrink pass when no banks are being dropped.
	MaintenanceInterval encoding.Duration `long:"maintenance-interval"`
	ShrinkRatio         float64           `long:"shrink-ratio" description:"value log GC threshold, 0 disables shrinking"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:               encoding.LogLevel{Level: logging.InfoLevel},
		MaintenanceInterval: encoding.Duration{Duration: 10 * time.Second},
		ShrinkRatio:         DefaultShrinkRatio,
	}
}

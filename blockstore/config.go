package blockstore

import (
	"code.kestrelchain.io/kestrel/config/encoding"
	"code.kestrelchain.io/kestrel/logging"
)

const namedLogger = "blockstore"

// Config represents the configuration of the blockstore.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	// EntryCacheSize is how many recently read slot entry batches are kept
	// in memory.
	EntryCacheSize int `long:"entry-cache-size"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:          encoding.LogLevel{Level: logging.InfoLevel},
		EntryCacheSize: 512,
	}
}

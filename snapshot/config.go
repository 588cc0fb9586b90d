package snapshot

import (
	"code.kestrelchain.io/kestrel/config/encoding"
	"code.kestrelchain.io/kestrel/logging"
)

const namedLogger = "snapshot"

// Config represents the configuration of snapshot handling. A nil *Config
// passed to bootstrap means snapshots are disabled entirely.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	// BankSnapshotsDir is the working directory used while materializing
	// snapshot state. It is reset on every boot.
	BankSnapshotsDir string `long:"bank-snapshots-dir" description:"working directory for in-progress snapshot state"`
	// ArchivesDir is where finished snapshot archives live.
	ArchivesDir string `long:"archives-dir" description:"directory holding snapshot archives"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:            encoding.LogLevel{Level: logging.InfoLevel},
		BankSnapshotsDir: "snapshots/pending",
		ArchivesDir:      "snapshots",
	}
}

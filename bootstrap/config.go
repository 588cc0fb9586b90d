package bootstrap

import (
	"code.kestrelchain.io/kestrel/config/encoding"
	"code.kestrelchain.io/kestrel/logging"
)

const namedLogger = "bootstrap"

// Config controls how the node reconstructs its execution state at startup.
// It is read-only input to the bootstrap sequence.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	// FullLeaderCache lifts the leader schedule cache retention bound.
	FullLeaderCache encoding.Bool `long:"full-leader-cache" description:"retain every derived leader schedule"`
	// ProgramJIT toggles the just-in-time compilation path for on-chain
	// programs.
	ProgramJIT encoding.Bool `long:"program-jit"`
	// FillerAccountCount is a load-testing knob, only meaningful when
	// restoring a snapshot that was produced with filler accounts.
	FillerAccountCount uint64 `long:"filler-account-count" description:"test only"`
	// ShrinkRatio overrides the account store GC threshold when non zero.
	ShrinkRatio float64 `long:"shrink-ratio"`
	// DebugKeys are account identities to trace through restore.
	DebugKeys []string `long:"debug-key"`
	// AccountIndexes are secondary account index names to enable.
	AccountIndexes []string `long:"account-index"`
	// NewHardForks are operator supplied hard fork slot overrides.
	NewHardForks []uint64 `long:"hard-fork"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level: encoding.LogLevel{Level: logging.InfoLevel},
	}
}

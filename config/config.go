package config

import (
	"os"
	"path/filepath"

	"code.kestrelchain.io/kestrel/accounts"
	"code.kestrelchain.io/kestrel/blockstore"
	"code.kestrelchain.io/kestrel/bootstrap"
	"code.kestrelchain.io/kestrel/config/encoding"
	"code.kestrelchain.io/kestrel/logging"
	"code.kestrelchain.io/kestrel/metrics"
	"code.kestrelchain.io/kestrel/snapshot"

	"github.com/BurntSushi/toml"
)

// Config ties together all other application configuration types.
type Config struct {
	Logging    logging.Config    `group:"Logging" namespace:"logging"`
	Accounts   accounts.Config   `group:"Accounts" namespace:"accounts"`
	Blockstore blockstore.Config `group:"Blockstore" namespace:"blockstore"`
	Snapshot   snapshot.Config   `group:"Snapshot" namespace:"snapshot"`
	Bootstrap  bootstrap.Config  `group:"Bootstrap" namespace:"bootstrap"`
	Metrics    metrics.Config    `group:"Metrics" namespace:"metrics"`

	AccountPaths []string `long:"account-paths" description:"Directories holding the accounts database"`
	ShrinkPaths  []string `long:"shrink-paths" description:"Directories the accounts store may compact into"`

	SnapshotsEnabled encoding.Bool `long:"snapshots-enabled" choice:"true" choice:"false" description:" "`
}

// NewDefaultConfig returns a set of defaults for all kestrel packages.
// Paths not set here are resolved against the node home at start up.
func NewDefaultConfig() Config {
	return Config{
		Logging:    logging.NewDefaultConfig(),
		Accounts:   accounts.NewDefaultConfig(),
		Blockstore: blockstore.NewDefaultConfig(),
		Snapshot:   snapshot.NewDefaultConfig(),
		Bootstrap:  bootstrap.NewDefaultConfig(),
		Metrics:    metrics.NewDefaultConfig(),

		SnapshotsEnabled: true,
	}
}

// Read loads the node configuration from rootPath, applying the file on
// top of the defaults so new fields keep working with old config files.
func Read(rootPath string) (*Config, error) {
	path := filepath.Join(rootPath, configFileName)
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := NewDefaultConfig()
	if _, err := toml.Decode(string(buf), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Write saves the given configuration under rootPath.
func Write(rootPath string, cfg Config) error {
	path := filepath.Join(rootPath, configFileName)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

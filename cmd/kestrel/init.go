package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"code.kestrelchain.io/kestrel/config"
	"code.kestrelchain.io/kestrel/genesis"
	"code.kestrelchain.io/kestrel/logging"
	"code.kestrelchain.io/kestrel/paths"

	"github.com/jessevdk/go-flags"
)

type InitCmd struct {
	HomeFlag

	Force bool `short:"f" long:"force" description:"Erase the existing node configuration at the specified home"`
}

var initCmd InitCmd

func Init(ctx context.Context, parser *flags.Parser) error {
	initCmd = InitCmd{}
	_, err := parser.AddCommand("init", "Initialize a kestrel node", "Generate the minimal configuration required for a kestrel node to start", &initCmd)
	return err
}

func (cmd *InitCmd) Execute(_ []string) error {
	log := logging.NewLoggerFromConfig(logging.NewDefaultConfig())
	defer log.AtExit()

	kestrelPaths := paths.New(cmd.KestrelHome)

	configFile := kestrelPaths.ConfigPathFor(paths.NodeConfigFile)
	if _, err := os.Stat(configFile); err == nil {
		if !cmd.Force {
			return fmt.Errorf("configuration already exists at `%v`, please remove it first or re-run using -f", configFile)
		}
		log.Info("removing existing configuration", logging.String("path", configFile))
		os.RemoveAll(filepath.Dir(configFile))
	}

	configDir, err := kestrelPaths.CreateConfigPathFor(paths.NodeConfigFile)
	if err != nil {
		return err
	}
	configDir = filepath.Dir(configDir)

	if err := config.Write(configDir, config.NewDefaultConfig()); err != nil {
		return err
	}

	gen := genesis.DefaultConfig()
	if err := gen.SaveToFile(configDir); err != nil {
		return err
	}

	for _, p := range []paths.StatePath{
		paths.AccountsStateHome,
		paths.BlockstoreStateHome,
		paths.SnapshotStateHome,
	} {
		if err := os.MkdirAll(kestrelPaths.StatePathFor(p), 0o700); err != nil {
			return err
		}
	}

	log.Info("configuration generated successfully", logging.String("path", configDir))
	return nil
}

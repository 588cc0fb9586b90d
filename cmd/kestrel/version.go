package main

import (
	"context"
	"fmt"

	"github.com/jessevdk/go-flags"
)

var (
	// CLIVersion is overridden at build time.
	CLIVersion = "v0.1.0+dev"
	// CLIVersionHash is the commit the binary was built from.
	CLIVersionHash = "unknown"
)

type VersionCmd struct {
	version string
	hash    string
	Help    bool `short:"h" long:"help" description:"Show this help message"`
}

func (cmd *VersionCmd) Execute(_ []string) error {
	if cmd.Help {
		return &flags.Error{
			Type:    flags.ErrHelp,
			Message: "kestrel version subcommand help",
		}
	}
	fmt.Printf("Kestrel CLI %s (%s)\n", cmd.version, cmd.hash)
	return nil
}

var versionCmd VersionCmd

func Version(ctx context.Context, parser *flags.Parser) error {
	versionCmd = VersionCmd{
		version: CLIVersion,
		hash:    CLIVersionHash,
	}

	_, err := parser.AddCommand("version", "Show version info", "Show version info", &versionCmd)
	return err
}

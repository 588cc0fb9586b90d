package main

import (
	"context"
	"os"

	"github.com/jessevdk/go-flags"
)

func main() {
	if err := execute(context.Background()); err != nil {
		os.Exit(1)
	}
}

func execute(ctx context.Context) error {
	parser := flags.NewParser(&struct{}{}, flags.Default)

	for _, register := range []func(context.Context, *flags.Parser) error{
		Init,
		Node,
		Version,
	}{
		if err := register(ctx, parser); err != nil {
			return err
		}
	}

	if _, err := parser.Parse(); err != nil {
		if ferr, ok := err.(*flags.Error); ok && ferr.Type == flags.ErrHelp {
			return nil
		}
		return err
	}
	return nil
}

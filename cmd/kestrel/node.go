package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"code.kestrelchain.io/kestrel/accounts"
	"code.kestrelchain.io/kestrel/blockstore"
	"code.kestrelchain.io/kestrel/bootstrap"
	"code.kestrelchain.io/kestrel/config"
	"code.kestrelchain.io/kestrel/genesis"
	"code.kestrelchain.io/kestrel/logging"
	"code.kestrelchain.io/kestrel/metrics"
	"code.kestrelchain.io/kestrel/paths"
	"code.kestrelchain.io/kestrel/replay"
	"code.kestrelchain.io/kestrel/snapshot"

	"github.com/jessevdk/go-flags"
)

type NodeCmd struct {
	HomeFlag

	config.Config
}

var nodeCmd NodeCmd

func Node(ctx context.Context, parser *flags.Parser) error {
	nodeCmd = NodeCmd{
		Config: config.NewDefaultConfig(),
	}
	cmd, err := parser.AddCommand("node", "Runs a kestrel node", "Runs a kestrel node as defined by the config files", &nodeCmd)
	if err != nil {
		return err
	}

	// Print nested groups under parent's name using `::` as the separator.
	for _, parent := range cmd.Groups() {
		for _, grp := range parent.Groups() {
			grp.ShortDescription = parent.ShortDescription + "::" + grp.ShortDescription
		}
	}
	return nil
}

func (cmd *NodeCmd) Execute(args []string) error {
	log := logging.NewLoggerFromConfig(
		logging.NewDefaultConfig(),
	)
	defer log.AtExit()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kestrelPaths := paths.New(cmd.KestrelHome)
	configHome := filepath.Dir(kestrelPaths.ConfigPathFor(paths.NodeConfigFile))

	confWatcher, err := config.NewFromFile(ctx, log, configHome)
	if err != nil {
		return err
	}
	cfg := confWatcher.Get()

	log = logging.NewLoggerFromConfig(cfg.Logging)
	defer log.AtExit()

	gen, err := genesis.LoadFromFile(configHome)
	if err != nil {
		return err
	}
	if err := gen.Validate(); err != nil {
		return err
	}

	stateHome := kestrelPaths.StatePathFor(paths.NodeStateHome)
	accountPaths := cfg.AccountPaths
	if len(accountPaths) == 0 {
		accountPaths = []string{kestrelPaths.StatePathFor(paths.AccountsStateHome)}
	}

	var snapCfg *snapshot.Config
	if cfg.SnapshotsEnabled {
		sc := cfg.Snapshot
		sc.BankSnapshotsDir = resolveDir(sc.BankSnapshotsDir, stateHome)
		sc.ArchivesDir = resolveDir(sc.ArchivesDir, stateHome)
		snapCfg = &sc
	}

	if cfg.Metrics.Enabled {
		metrics.Start(cfg.Metrics)
	}

	store, err := blockstore.Open(log, cfg.Blockstore, kestrelPaths.StatePathFor(paths.BlockstoreStateHome))
	if err != nil {
		return err
	}
	defer store.Close()

	replayer := replay.New(log)

	forks, cache, descriptor, rx, err := bootstrap.LoadForks(
		log, gen, accountPaths, cfg.ShrinkPaths,
		snapCfg, cfg.Accounts, cfg.Bootstrap,
		snapshot.ArchiveCodec{}, replayer,
	)
	if err != nil {
		return err
	}

	if err := replayer.ProcessBlockstoreFromRoot(ctx, store, forks, cache, rx); err != nil {
		return err
	}

	root := forks.Root()
	if descriptor != nil {
		log.Info("node bootstrapped from snapshot",
			logging.Slot("boot-slot", descriptor.BootSlot()),
			logging.Slot("root", root.Slot()),
		)
	} else {
		log.Info("node bootstrapped from genesis",
			logging.Slot("root", root.Slot()),
		)
	}

	backgroundSvc := accounts.NewBackgroundService(log, root.DB(), rx)
	backgroundSvc.Start(ctx)

	confWatcher.OnConfigUpdate(func(c config.Config) {
		root.DB().ReloadConf(c.Accounts)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutting down", logging.String("signal", sig.String()))
	case <-ctx.Done():
	}

	backgroundSvc.Stop()
	return root.DB().Close()
}

func resolveDir(dir, base string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}

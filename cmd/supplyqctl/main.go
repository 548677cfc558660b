package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"supplyq/pkg/supplyq"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// globalFlags override values read from --config when set explicitly.
type globalFlags struct {
	configPath string
	storeKind  string
	dbPath     string
	runsDir    string
	seed       int64
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&globalFlags{})
}

func buildRootCmd(flags *globalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:           "supplyqctl",
		Short:         "Train and drive a Q-learning supply-chain controller",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&flags.configPath, "config", "", "YAML config file")
	f.StringVar(&flags.storeKind, "store", defaultStoreKind, "store backend: memory|sqlite|badger")
	f.StringVar(&flags.dbPath, "db-path", "", "sqlite file or badger directory (default supplyq.db or supplyq.badger by store)")
	f.StringVar(&flags.runsDir, "runs-dir", "runs", "directory for training run artifacts")
	f.Int64Var(&flags.seed, "seed", 1, "random seed for exploration and demand")
	f.StringVar(&flags.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	f.StringVar(&flags.logFormat, "log-format", "text", "log format: text|json")

	root.AddCommand(
		newInitCmd(flags),
		newResetCmd(flags),
		newTrainCmd(flags),
		newStepCmd(flags),
		newRunCmd(flags),
		newServeCmd(flags),
		newInspectCmd(flags),
	)
	return root
}

// resolveConfig merges defaults, the config file and explicitly set flags.
func resolveConfig(cmd *cobra.Command, flags *globalFlags) (fileConfig, error) {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return fileConfig{}, err
	}
	changed := cmd.Flags().Changed
	if changed("store") {
		cfg.Store.Kind = flags.storeKind
	}
	if changed("db-path") {
		cfg.Store.Path = flags.dbPath
	}
	if changed("runs-dir") || cfg.Simulation.RunsDir == "" {
		cfg.Simulation.RunsDir = flags.runsDir
	}
	if changed("seed") || cfg.Agent.Seed == 0 {
		cfg.Agent.Seed = flags.seed
	}
	if changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = flags.logFormat
	}
	return cfg, nil
}

type resolvedConfig struct {
	fileConfig
	logger *slog.Logger
}

// openClient builds a client from the resolved config. Callers close it.
func openClient(cmd *cobra.Command, flags *globalFlags) (*supplyq.Client, resolvedConfig, error) {
	cfg, err := resolveConfig(cmd, flags)
	if err != nil {
		return nil, resolvedConfig{}, err
	}
	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, resolvedConfig{}, err
	}
	client, err := supplyq.New(cmd.Context(), cfg.options(logger))
	if err != nil {
		return nil, resolvedConfig{}, err
	}
	return client, resolvedConfig{fileConfig: cfg, logger: logger}, nil
}

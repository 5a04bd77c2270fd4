package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/screa/salty/internal/config"
	"github.com/screa/salty/internal/opencl"
	"github.com/screa/salty/pkg/gpu"
	"github.com/screa/salty/pkg/miner"
	"github.com/screa/salty/pkg/report"
	"github.com/screa/salty/pkg/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var cfg = config.NewConfig()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

const mineLong = `Searches for CREATE2 salts whose resulting contract address starts with a
given byte pattern. The salt is the caller address followed by a random
4-byte segment and an 8-byte nonce.

Values are read from salty.toml in the working directory when present;
flags given on the command line take precedence.`

// newRootCmd builds the command tree. Running salty without a subcommand is
// the same as salty mine.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "salty",
		Short:         "CREATE2 salt miner",
		Long:          mineLong,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runMine,
	}
	addMineFlags(rootCmd.Flags())

	mineCmd := &cobra.Command{
		Use:   "mine",
		Short: "Search for a salt matching the pattern",
		Long:  mineLong,
		Args:  cobra.NoArgs,
		RunE:  runMine,
	}
	addMineFlags(mineCmd.Flags())

	rootCmd.AddCommand(mineCmd, &cobra.Command{
		Use:   "list",
		Short: "List OpenCL platforms and devices",
		Args:  cobra.NoArgs,
		RunE:  runList,
	})
	return rootCmd
}

func addMineFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&cfg.ConfigFile, "config", "C", config.DefaultConfigFile, "TOML configuration file")
	flags.StringVarP(&cfg.Factory, "factory", "f", config.DefaultFactory, "CREATE2 factory address (hex)")
	flags.StringVarP(&cfg.Caller, "caller", "c", "", "Caller address, the first 20 bytes of the salt (hex) (required)")
	flags.StringVarP(&cfg.Codehash, "codehash", "H", "", "Keccak-256 hash of the contract init code (hex)")
	flags.StringVarP(&cfg.Bytecode, "bytecode", "B", "", "Contract init code (hex), hashed when --codehash is not given")
	flags.StringVarP(&cfg.BytecodeFile, "bytecode-file", "F", "", "File containing contract init code (hex)")
	flags.Uint32VarP(&cfg.Worksize, "worksize", "s", config.DefaultWorksize, "Work-items per GPU dispatch (accepts 0x)")
	flags.StringVarP(&cfg.Pattern, "pattern", "p", config.DefaultPattern, "Address prefix to search for (hex, 1 to 20 bytes)")
	flags.StringVarP(&cfg.Backend, "backend", "b", config.BackendGPU, "Search backend: gpu, cpu or emulated")
	flags.IntVar(&cfg.Platform, "platform", 0, "OpenCL platform index")
	flags.IntVar(&cfg.Device, "device", 0, "OpenCL device index")
	flags.IntVarP(&cfg.Workers, "workers", "w", runtime.NumCPU(), "Worker goroutines for the cpu and emulated backends")
	flags.Uint32Var(&cfg.BatchSize, "batch-size", 0, "Candidates per CPU batch (default worksize/workers)")
	flags.Uint64Var(&cfg.Seed, "seed", 0, "Base seed for the cpu backend (default derived from the clock)")
	flags.BoolVar(&cfg.StopOnFound, "stop-on-found", true, "Stop the cpu backend after the first batch with results")
	flags.StringVarP(&cfg.DebugLevel, "debuglevel", "d", config.DefaultDebugLevel, "Logging level {trace, debug, info, warn, error, critical} or SUBSYS=level,...")
	flags.StringVarP(&cfg.LogFile, "log-file", "l", "", "Also write logs to this file, rotating it as it grows")
	flags.IntVarP(&cfg.LogInterval, "log-interval", "i", config.DefaultLogInterval, "Progress interval in seconds for the cpu backend")
}

func runMine(cmd *cobra.Command, args []string) error {
	if err := cfg.MergeFile(cfg.ConfigFile, cmd.Flags().Changed); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := initLogging(cfg.LogFile, cfg.DebugLevel); err != nil {
		return err
	}
	defer logBackend.Close()

	raw, err := cfg.Raw()
	if err != nil {
		return err
	}
	mc, err := config.ParseConfig(raw)
	if err != nil {
		return err
	}
	if debugEnabled() {
		log.Debugf("Configuration: %s", spew.Sdump(cfg))
	}

	log.Infof("Factory:  %s", mc.Factory.Hex())
	log.Infof("Caller:   %s", mc.Caller.Hex())
	log.Infof("Codehash: %s", mc.Codehash.Hex())
	log.Infof("Pattern:  %s (%d bytes), backend %s", raw.Pattern, mc.PatternLen, cfg.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	display := report.NewDisplay(os.Stdout)
	found, err := search(ctx, mc, display)
	display.Close()

	if ctx.Err() != nil {
		log.Info("Received interrupt signal, stopped mining")
	}
	for _, res := range found {
		log.Infof("Salt %s -> address %s", res.Salt, res.Address)
	}
	if err != nil {
		return err
	}
	if len(found) == 0 {
		log.Info("No match found")
	}
	return nil
}

func search(ctx context.Context, mc *types.MinerConfig, display *report.Display) ([]types.FoundResult, error) {
	switch cfg.Backend {
	case config.BackendCPU:
		seed := cfg.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixMilli())
		}
		m := miner.New(mc, miner.Options{
			Workers:     cfg.Workers,
			BatchSize:   cfg.BatchSize,
			Seed:        seed,
			StopOnFound: cfg.StopOnFound,
			LogInterval: time.Duration(cfg.LogInterval) * time.Second,
		}, display)
		return m.Mine(ctx)

	case config.BackendGPU:
		dev := &gpu.OpenCLDevice{Platform: cfg.Platform, Index: cfg.Device}
		return gpu.New(mc, dev, display).Run(ctx)

	case config.BackendEmulated:
		return gpu.New(mc, gpu.NewEmulator(cfg.Workers), display).Run(ctx)
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
}

func runList(cmd *cobra.Command, args []string) error {
	platforms, err := opencl.Platforms()
	if errors.Is(err, opencl.ErrUnavailable) {
		return err
	}
	if err != nil {
		return fmt.Errorf("listing OpenCL platforms: %w", err)
	}
	if len(platforms) == 0 {
		fmt.Println("No OpenCL platforms found")
		return nil
	}

	for i, p := range platforms {
		def := ""
		if i == 0 {
			def = " (default)"
		}
		fmt.Printf("Platform %d%s: %s, %s, %s\n", i, def, p.Name, p.Vendor, p.Version)
		for j, d := range p.Devices {
			fmt.Printf("  Device %d: %s, %s, %d compute units, %d MiB\n",
				j, d.Name, d.Version, d.ComputeUnits, d.GlobalMemory>>20)
		}
	}
	return nil
}

// Command rvjit runs a static rv64gc Newlib ELF binary under the dynamic
// binary instrumentation engine.
//
// Grounded on the teacher's cmd/galago/main.go: a cobra root command
// with subcommands sharing global flags for input path and debug
// logging, generalized from ARM64 key-extraction options to this
// engine's run/info surface (the live stats view is run's --stats-ui
// flag, not a subcommand).
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wraithcore/rvjit/internal/config"
	"github.com/wraithcore/rvjit/internal/elfimage"
	"github.com/wraithcore/rvjit/internal/engine"
	"github.com/wraithcore/rvjit/internal/log"
	"github.com/wraithcore/rvjit/internal/tracelog"
	"github.com/wraithcore/rvjit/internal/ui/colorize"
)

var (
	flagDebug      bool
	flagConfigPath string
	flagScript     string
	flagTraceOut   string
	flagStatsUI    bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorize.Error(err.Error()))
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rvjit",
		Short: "Dynamic binary instrumentation engine for static rv64gc ELF binaries",
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to a YAML config file")

	root.AddCommand(runCmd(), infoCmd())
	return root
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return cfg, err
	}
	if flagDebug {
		cfg.Debug = true
	}
	if flagScript != "" {
		cfg.ScriptPath = flagScript
	}
	if flagTraceOut != "" {
		cfg.TraceEnabled = true
		cfg.TraceOutput = flagTraceOut
	}
	if flagStatsUI {
		cfg.StatsUI = true
	}
	return cfg, nil
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <elf-path>",
		Short: "Load and run a guest binary under the engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log.Init(cfg.Debug)

			img, err := elfimage.Load(args[0])
			if err != nil {
				return err
			}

			eng, err := engine.New(cfg, img)
			if err != nil {
				return err
			}
			defer eng.Close()

			if cfg.ScriptPath != "" {
				src, err := os.ReadFile(cfg.ScriptPath)
				if err != nil {
					return fmt.Errorf("read script: %w", err)
				}
				if err := eng.RegisterScript(cfg.ScriptPath, string(src)); err != nil {
					return err
				}
			}

			runErr := eng.Run(0)

			if cfg.TraceEnabled && cfg.TraceOutput != "" {
				f, err := os.Create(cfg.TraceOutput)
				if err != nil {
					return fmt.Errorf("create trace output: %w", err)
				}
				defer f.Close()
				if err := tracelog.Write(f, eng.Trace()); err != nil {
					return fmt.Errorf("write trace: %w", err)
				}
			}

			if runErr != nil {
				return runErr
			}

			os.Exit(eng.ExitCode())
			return nil
		},
	}

	cmd.Flags().StringVar(&flagScript, "script", "", "goja instrumentation script to load before running")
	cmd.Flags().StringVar(&flagTraceOut, "trace-out", "", "write a gzip CSV session trace to this path")
	cmd.Flags().BoolVar(&flagStatsUI, "stats-ui", false, "show a live cache/BBT/ELT stats view while running")
	return cmd
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <elf-path>",
		Short: "Print RISC-V ELF metadata (entry point, .text extent, symbol count)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := elfimage.Load(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("%s %s\n", colorize.Header("path:"), img.Path)
			fmt.Printf("%s %s\n", colorize.Header("entry:"), colorize.Address(img.Entry))
			fmt.Printf("%s %s .. %s (%d bytes)\n", colorize.Header(".text:"),
				colorize.Address(img.TextBase), colorize.Address(img.TextBase+img.TextSize), img.TextSize)
			fmt.Printf("%s %d\n", colorize.Header("segments:"), len(img.Segments))
			fmt.Printf("%s %d\n", colorize.Header("symbols:"), len(img.Symbols))

			if addr := img.FindSymbol("main"); addr != 0 {
				fmt.Printf("%s %s\n", colorize.Header("main:"), colorize.Address(addr))
			}
			return nil
		},
	}
}

// statsInterval is the stats view's polling cadence. Nothing reads it:
// internal/engine passes its own 200ms literal to statsview.Run.
const statsInterval = 200 * time.Millisecond

// Command iw_parser extracts typed records from IceWars game screens.
//
// Subcommands:
//
//	parse     parse screens from files, JSONL or stdin and print outcomes
//	classify  list the parsers whose layout matches a screen
//	trace     show why a parser does or does not match a screen
//	serve     run the NATS ingest service and the HTTP API
//	history   query stored outcomes
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"iw_parser/internal/config"
	"iw_parser/internal/logging"
	_ "iw_parser/internal/parsers" // register all parsers via init()
	"iw_parser/internal/registry"
)

var version = "0.1.0"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
	reg *registry.Registry
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "iw_parser",
		Short: "Parse IceWars game screens into typed records",
		Long: `iw_parser recognises copied IceWars screens (building queue overview,
ship info, military ship overview) and extracts typed records from them.

Configuration is read from --config and IWPARSER_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	root.AddCommand(a.parseCmd())
	root.AddCommand(a.classifyCmd())
	root.AddCommand(a.traceCmd())
	root.AddCommand(a.serveCmd())
	root.AddCommand(a.historyCmd())
	return root
}

// setup loads configuration, builds the logger and the parser registry.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		lvl, err := zapcore.ParseLevel(a.logLevel)
		if err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
		cfg.Log.Level = lvl
	}
	a.cfg = cfg

	if a.log, err = logging.New(cfg.Log); err != nil {
		return err
	}

	lib, err := cfg.Library()
	if err != nil {
		return err
	}
	if a.reg, err = registry.Build(lib); err != nil {
		return fmt.Errorf("build parsers: %w", err)
	}
	a.log.Debug("parsers ready",
		zap.Strings("parsers", a.reg.IDs()),
		zap.Duration("match_timeout", cfg.Match.Timeout),
		zap.String("timezone", cfg.Locale.Timezone),
	)
	return nil
}

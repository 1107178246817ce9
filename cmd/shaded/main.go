// main.go - shaded, the confidential asset ledger daemon.

package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shadepool/shade/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	var cfgFile string
	cmd := &cobra.Command{
		Use:   "shaded",
		Short: "confidential asset ledger daemon",
		Long: `shaded keeps a ledger of confidential notes: commitments in an
append-only accumulator, single-use nullifiers, and proof-gated
operations settled through custodial pools.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config: %w", err)
				}
			}
			c, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), c)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfgFile, "config", "", "config file path")
	f.Int("tree-depth", config.Defaults().TreeDepth, "accumulator depth (capacity 2^depth)")
	f.Int("root-window", config.Defaults().RootWindow, "accepted-root history size, 0 keeps all")
	f.Uint64("fee-rate", config.Defaults().FeeRatePerMillion, "service fee rate, parts per million")
	f.Uint64("slippage", config.Defaults().SlippagePerMille, "venue slippage haircut, per mille")
	f.String("data-dir", "", "data directory for the persistent registry and keys; empty runs in memory")
	f.String("listen", config.Defaults().Listen, "HTTP listen address")
	f.String("fee-sink", "", "address receiving service fees")
	f.String("log-level", config.Defaults().LogLevel, "log level")
	for _, key := range []string{
		"tree-depth", "root-window", "fee-rate", "slippage",
		"data-dir", "listen", "fee-sink", "log-level",
	} {
		if err := v.BindPFlag(key, f.Lookup(key)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

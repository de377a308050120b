// Package main provides the vmbench CLI: it measures the suite workloads on
// every runtime, checks that the runtimes agree and opens a contract console.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/feather-lang/vmbench/internal/config"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(logger, level)
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("vmbench failed", slog.Any("err", err))
		stop()
		os.Exit(1)
	}
}

// app is the state shared by all commands.
type app struct {
	logger *slog.Logger
	level  *slog.LevelVar
	v      *viper.Viper
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	a := &app{logger: logger, level: level, v: viper.New()}

	var cfgFile string

	root := &cobra.Command{
		Use:   "vmbench",
		Short: "Compare contract, WebAssembly and native execution",
		Long: `vmbench measures two micro-workloads, a 32-bit addition and a 32-byte
buffer reversal, on a contract interpreter, on wazero (compiler and
interpreter tiers), on wasmtime and as native Go, and compares the results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Load(a.v, cfgFile); err != nil {
				return err
			}
			if a.v.GetBool(config.KeyVerbose) {
				a.level.Set(slog.LevelDebug)
			}
			if used := a.v.ConfigFileUsed(); used != "" {
				a.logger.Debug("using config file", slog.String("path", used))
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "",
		"Config file (default ./vmbench.yaml)")
	flags.BoolP("verbose", "v", false,
		"Enable debug logging")
	bindFlags(a.v, flags, map[string]string{config.KeyVerbose: "verbose"})

	root.AddCommand(
		newRunCmd(a),
		newVerifyCmd(a),
		newListCmd(a),
		newConsoleCmd(a),
	)

	return root
}

// bindFlags binds config keys to the named flags so that a flag set on the
// command line overrides the config file and environment.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if f := flags.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

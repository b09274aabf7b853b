package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

type rootOptions struct {
	settingsFile string
	installPath  string
	verbose      bool
	quiet        bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "corral",
		Short:         "Deploy installed package trees to Lambda functions and layers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.settingsFile, "settings-file", "corral.yml", "Settings file name")
	cmd.PersistentFlags().StringVar(&opts.installPath, "install-path", ".", `Package install path (e.g. from "pip install -t")`)
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug output")
	cmd.PersistentFlags().BoolVar(&opts.quiet, "quiet", false, "Disable log output")

	cmd.AddCommand(newDeployCommand(opts))
	cmd.AddCommand(newPlanCommand(opts))
	cmd.AddCommand(newStateCommand(opts))
	return cmd
}

func (o *rootOptions) logger() zerolog.Logger {
	if o.quiet {
		return zerolog.Nop()
	}
	level := zerolog.InfoLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

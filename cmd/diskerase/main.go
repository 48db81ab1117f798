// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package main is the diskerase command.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"os/user"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/siderolabs/diskerase/internal/config"
	"github.com/siderolabs/diskerase/internal/failure"
	"github.com/siderolabs/diskerase/workflow"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCommand(os.Stdin, os.Stdout).ExecuteContext(ctx)

	stop()

	if err != nil {
		printError(os.Stderr, err)
	}

	os.Exit(failure.ExitCode(err))
}

func newRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   workflow.Name + " [options]",
		Short: "Securely erase a disk with diskutil secureErase",
		Long: `Resolves the disk and the erase level from options or interactive prompts,
shows a summary, asks for confirmation and runs diskutil secureErase.
Each real erase is recorded in a log file.`,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := config.DefaultPaths(os.Getenv, user.Lookup)
			if err != nil {
				return failure.Mark(err, failure.KindEnvironment)
			}

			cfg, err := config.Load(paths)
			if err != nil {
				return failure.Mark(err, failure.KindEnvironment)
			}

			logger, err := newLogger(cfg.Debug)
			if err != nil {
				return failure.Mark(err, failure.KindEnvironment)
			}

			defer logger.Sync() //nolint:errcheck

			logger.Debug("configuration loaded", zap.String("config_dir", paths.ConfigDir), zap.Any("config", cfg))

			return workflow.New(in, out,
				workflow.WithConfig(cfg),
				workflow.WithLogger(logger),
			).Run(cmd.Context(), args)
		},
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)

	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return cfg.Build()
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %s\n", err)

	for _, hint := range failure.Hints(err) {
		fmt.Fprintf(w, "Hint: %s\n", hint)
	}
}

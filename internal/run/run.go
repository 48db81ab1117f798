// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package run executes external programs and reports a structured result.
package run

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/siderolabs/go-cmd/pkg/cmd"
	"go.uber.org/zap"
)

// Result of running an external program.
type Result struct {
	// Output is stdout, followed by stderr if the program failed.
	Output   string
	ExitCode int
}

// OK is true if the program exited with status 0.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Runner runs external programs.
//
// A non-zero exit status is reported in Result, not as an error.
// The error is reserved for programs which could not be run at all.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// Option configures Command.
type Option func(*Command)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Command) {
		c.logger = logger
	}
}

// Command is a Runner backed by real processes.
type Command struct {
	logger *zap.Logger
}

// New creates a new Command runner.
func New(opts ...Option) *Command {
	c := &Command{
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run implements Runner.
func (c *Command) Run(ctx context.Context, name string, args ...string) (Result, error) {
	c.logger.Debug("running command", zap.String("command", Line(name, args...)))

	stdout, err := cmd.RunContext(ctx, name, args...)
	if err != nil {
		var exitError *cmd.ExitError

		if errors.As(err, &exitError) {
			c.logger.Debug("command failed",
				zap.String("command", name),
				zap.Int("exit_code", exitError.ExitCode),
			)

			return Result{
				Output:   stdout + string(exitError.Output),
				ExitCode: exitError.ExitCode,
			}, nil
		}

		return Result{}, errors.Wrapf(err, "failed to run %s", name)
	}

	return Result{Output: stdout}, nil
}

// Line renders the command line as a single string.
func Line(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package workflow runs a guided secure erase from the command line to the audit log.
package workflow

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/siderolabs/diskerase/auditlog"
	"github.com/siderolabs/diskerase/confirm"
	"github.com/siderolabs/diskerase/diskinfo"
	"github.com/siderolabs/diskerase/erase"
	"github.com/siderolabs/diskerase/internal/config"
	"github.com/siderolabs/diskerase/internal/failure"
	"github.com/siderolabs/diskerase/internal/prompt"
	"github.com/siderolabs/diskerase/internal/run"
	"github.com/siderolabs/diskerase/preflight"
	"github.com/siderolabs/diskerase/resolve"
)

// Name of the command in the usage text.
const Name = "diskerase"

// Option configures the Workflow.
type Option func(*Workflow)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// WithConfig sets the configuration.
func WithConfig(cfg config.Config) Option {
	return func(w *Workflow) {
		w.cfg = cfg
	}
}

// WithRunner replaces the external command runner.
func WithRunner(runner run.Runner) Option {
	return func(w *Workflow) {
		w.runner = runner
	}
}

// WithEnvironment replaces the environment the preflight checks inspect.
func WithEnvironment(env preflight.Environment) Option {
	return func(w *Workflow) {
		w.env = env
	}
}

// WithNodeCheck replaces the device node check.
func WithNodeCheck(check func(path string) (bool, error)) Option {
	return func(w *Workflow) {
		w.nodeCheck = check
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		w.now = now
	}
}

// WithGetenv sets the environment lookup used to find the sudo user.
func WithGetenv(getenv func(string) string) Option {
	return func(w *Workflow) {
		w.getenv = getenv
	}
}

// Workflow wires resolution, confirmation, execution and audit logging.
type Workflow struct {
	in  io.Reader
	out io.Writer

	logger    *zap.Logger
	cfg       config.Config
	runner    run.Runner
	env       preflight.Environment
	nodeCheck func(string) (bool, error)
	now       func() time.Time
	getenv    func(string) string
}

// New creates a new Workflow reading answers from in and writing to out.
func New(in io.Reader, out io.Writer, opts ...Option) *Workflow {
	w := &Workflow{
		in:     in,
		out:    out,
		logger: zap.NewNop(),
		cfg: config.Config{
			Diskutil: "diskutil",
			Smartctl: "smartctl",
		},
		env:    preflight.Host(),
		now:    time.Now,
		getenv: os.Getenv,
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.runner == nil {
		w.runner = run.New(run.WithLogger(w.logger))
	}

	return w
}

// Run executes the workflow for the command line args.
//
// The returned error is classified with the failure package.
func (w *Workflow) Run(ctx context.Context, args []string) error {
	flags, err := resolve.Parse(args)
	if err != nil {
		return err
	}

	if flags.Help {
		resolve.Usage(w.out, Name)

		return nil
	}

	for _, spelling := range flags.Deprecated {
		w.logger.Warn("deprecated option", zap.String("option", spelling))

		fmt.Fprintf(w.out, "Warning: %s is deprecated, use -s/--skip instead.\n", spelling)
	}

	tools, err := preflight.Check(w.env, []preflight.Tool{
		{Name: "diskutil", Path: w.cfg.Diskutil, Hint: "diskutil ships with macOS, check PATH"},
		{Name: "smartctl", Path: w.cfg.Smartctl, Hint: "install smartmontools: brew install smartmontools"},
	}, flags.Pretend)
	if err != nil {
		return err
	}

	diskutil, smartctl := tools[0].Path, tools[1].Path

	providerOpts := []diskinfo.Option{
		diskinfo.WithDiskutil(diskutil),
		diskinfo.WithSmartctl(smartctl),
		diskinfo.WithLogger(w.logger.Named("diskinfo")),
	}

	if w.nodeCheck != nil {
		providerOpts = append(providerOpts, diskinfo.WithNodeCheck(w.nodeCheck))
	}

	prompter := prompt.New(w.in, w.out)

	req, err := resolve.New(
		diskinfo.NewDiskutil(w.runner, providerOpts...),
		prompter,
		resolve.WithLogger(w.logger.Named("resolve")),
	).Resolve(ctx, flags)
	if err != nil {
		return err
	}

	decision, err := confirm.New(prompter, confirm.WithLogger(w.logger.Named("confirm"))).Confirm(ctx, req)
	if err != nil {
		return err
	}

	if err = decision.Err(); err != nil {
		fmt.Fprintf(w.out, "%s.\n", confirm.ErrRejected)

		return err
	}

	// the operator may have taken a while to answer
	if err = ctx.Err(); err != nil {
		return failure.Mark(errors.Wrap(err, "interrupted before erase"), failure.KindAborted)
	}

	recorder := w.recorder(req)

	if err = recorder.Start(req, w.now()); err != nil {
		return failure.Mark(
			errors.WithHint(errors.Wrap(err, "failed to start audit log"), "use --nolog to erase without an audit log"),
			failure.KindEnvironment,
		)
	}

	outcome := erase.NewExecutor(w.runner,
		erase.WithDiskutil(diskutil),
		erase.WithOutput(w.out),
		erase.WithClock(w.now),
		erase.WithLogger(w.logger.Named("erase")),
	).Execute(ctx, req)

	if err = recorder.Finish(outcome); err != nil {
		w.logger.Warn("failed to finish audit log", zap.Error(err))
	}

	elapsed := erase.FormatElapsed(outcome.Duration())

	switch {
	case !outcome.Succeeded():
		fmt.Fprintf(w.out, "Erase of %s FAILED after %s.\n", req.Device, elapsed)
	case req.Pretend:
		fmt.Fprintf(w.out, "Pretend run completed in %s, no data was changed.\n", elapsed)
	default:
		fmt.Fprintf(w.out, "Erase of %s completed in %s.\n", req.Device, elapsed)
	}

	if file, ok := recorder.(*auditlog.File); ok {
		fmt.Fprintf(w.out, "Log written to %s\n", file.Path())
	}

	return outcome.Err
}

func (w *Workflow) recorder(req erase.Request) auditlog.Recorder {
	opts := []auditlog.Option{auditlog.WithLogger(w.logger.Named("auditlog"))}

	if owner, ok := auditlog.OwnerFromSudo(w.getenv); ok {
		opts = append(opts, auditlog.WithOwner(owner))
	}

	return auditlog.New(w.cfg.LogDir, req, opts...)
}

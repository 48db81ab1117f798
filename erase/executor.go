// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package erase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/siderolabs/diskerase/internal/failure"
	"github.com/siderolabs/diskerase/internal/run"
)

// Common errors.
var (
	ErrUnmountFailed = errors.New("failed to unmount disk")
	ErrEraseFailed   = errors.New("secure erase failed")
)

// Step of the erase.
type Step string

// Erase steps.
const (
	StepUnmount Step = "unmount"
	StepErase   Step = "erase"
)

// Outcome of an erase run.
type Outcome struct {
	Started  time.Time
	Finished time.Time

	// Err is nil on success.
	Err error
	// Step which failed, empty on success.
	Step Step
}

// Duration of the run.
func (o Outcome) Duration() time.Duration {
	return o.Finished.Sub(o.Started)
}

// Succeeded is true if both steps completed.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Option configures the Executor.
type Option func(*Executor)

// WithDiskutil sets the diskutil binary.
func WithDiskutil(path string) Option {
	return func(e *Executor) {
		e.diskutil = path
	}
}

// WithOutput sets where progress messages are printed.
func WithOutput(w io.Writer) Option {
	return func(e *Executor) {
		e.out = w
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		e.now = now
	}
}

// Executor unmounts and erases disks with diskutil.
type Executor struct {
	runner   run.Runner
	out      io.Writer
	logger   *zap.Logger
	now      func() time.Time
	diskutil string
}

// NewExecutor creates a new Executor.
func NewExecutor(runner run.Runner, opts ...Option) *Executor {
	e := &Executor{
		runner:   runner,
		out:      io.Discard,
		logger:   zap.NewNop(),
		now:      time.Now,
		diskutil: "diskutil",
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute unmounts the disk and runs the secure erase.
//
// Once started the run is not cancellable: ctx only carries values.
// In pretend mode no command is run.
func (e *Executor) Execute(ctx context.Context, req Request) Outcome {
	ctx = context.WithoutCancel(ctx)

	outcome := Outcome{Started: e.now()}

	finish := func(step Step, err error) Outcome {
		outcome.Finished = e.now()
		outcome.Step = step
		outcome.Err = err

		return outcome
	}

	logger := e.logger.With(zap.String("device", req.Device), zap.Stringer("level", req.Level))

	unmountArgs := []string{"unmountDisk", req.Device}
	eraseArgs := []string{"secureErase", req.Level.String(), req.Device}

	if req.Pretend {
		logger.Info("pretend run, skipping diskutil")

		fmt.Fprintf(e.out, "[pretend] %s\n", run.Line(e.diskutil, unmountArgs...))
		fmt.Fprintf(e.out, "[pretend] Unmount of %s simulated.\n", req.Device)
		fmt.Fprintf(e.out, "[pretend] %s\n", run.Line(e.diskutil, eraseArgs...))
		fmt.Fprintf(e.out, "[pretend] Erase simulated, no data was changed.\n")

		return finish("", nil)
	}

	fmt.Fprintf(e.out, "Unmounting %s...\n", req.Device)

	if err := e.step(ctx, ErrUnmountFailed, unmountArgs...); err != nil {
		logger.Error("unmount failed", zap.Error(err))

		return finish(StepUnmount, err)
	}

	fmt.Fprintf(e.out, "Erasing %s: %s. This can take a long time.\n", req.Device, req.Level.Description())

	logger.Info("secure erase started")

	if err := e.step(ctx, ErrEraseFailed, eraseArgs...); err != nil {
		logger.Error("secure erase failed", zap.Error(err))

		return finish(StepErase, err)
	}

	logger.Info("secure erase completed")

	return finish("", nil)
}

func (e *Executor) step(ctx context.Context, sentinel error, args ...string) error {
	res, err := e.runner.Run(ctx, e.diskutil, args...)
	if err != nil {
		return failure.Mark(errors.Mark(errors.Wrap(err, sentinel.Error()), sentinel), failure.KindOperational)
	}

	if !res.OK() {
		err = errors.Newf("%s: diskutil exited with status %d", sentinel.Error(), res.ExitCode)

		if out := strings.TrimSpace(res.Output); out != "" {
			err = errors.WithHint(err, out)
		}

		return failure.Mark(errors.Mark(err, sentinel), failure.KindOperational)
	}

	return nil
}

// FormatElapsed renders a duration as HH:MM:SS.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	total := int64(d.Round(time.Second) / time.Second)

	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package resolve turns command line flags and operator answers into a validated erase request.
package resolve

import (
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/siderolabs/diskerase/diskinfo"
	"github.com/siderolabs/diskerase/erase"
	"github.com/siderolabs/diskerase/internal/failure"
	"github.com/siderolabs/diskerase/internal/prompt"
	"github.com/siderolabs/diskerase/partitioning"
)

// Validation errors.
var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrNotADisk       = errors.New("not a disk device")
	ErrBootDisk       = errors.New("cannot securely erase the boot disk")
)

// Option configures the Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// Resolver fills in and validates an erase request.
type Resolver struct {
	provider diskinfo.Provider
	prompter *prompt.Prompter
	logger   *zap.Logger

	bootDisks []string
}

// New creates a new Resolver.
func New(provider diskinfo.Provider, prompter *prompt.Prompter, opts ...Option) *Resolver {
	r := &Resolver{
		provider: provider,
		prompter: prompter,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve builds the erase request.
//
// Values given as flags are validated before any question is asked.
// The disk is asked for before the level.
// Model and serial fall back to erase.None if they can't be detected.
func (r *Resolver) Resolve(ctx context.Context, flags Flags) (erase.Request, error) {
	req := erase.Request{
		Pretend:          flags.Pretend,
		SkipConfirmation: flags.Skip,
		NoLog:            flags.NoLog,
		Label:            flags.Label,
		ModelOverride:    flags.Model,
		SerialOverride:   flags.Serial,
	}

	var (
		device string
		level  erase.Level
		err    error
	)

	if flags.Disk != nil {
		if device, err = r.validateDevice(ctx, *flags.Disk); err != nil {
			return erase.Request{}, err
		}
	}

	if flags.Level != nil {
		if level, err = erase.ParseLevel(*flags.Level); err != nil {
			return erase.Request{}, err
		}
	}

	if flags.Disk == nil {
		if device, err = r.askDevice(ctx); err != nil {
			return erase.Request{}, err
		}
	}

	if flags.Level == nil {
		if level, err = r.askLevel(ctx); err != nil {
			return erase.Request{}, err
		}
	}

	req.Device = device
	req.Level = level
	req.Disk = r.lookup(ctx, req)

	return req, nil
}

func (r *Resolver) askDevice(ctx context.Context) (string, error) {
	out := r.prompter.Out()

	if list, err := r.provider.ListDisks(ctx); err != nil {
		r.logger.Warn("failed to list disks", zap.Error(err))
	} else {
		fmt.Fprintln(out, list)
	}

	answer, err := r.prompter.Ask(ctx, "Enter the disk to erase (e.g. /dev/disk4):")
	if err != nil {
		return "", promptError(err)
	}

	return r.validateDevice(ctx, answer)
}

func (r *Resolver) askLevel(ctx context.Context) (erase.Level, error) {
	out := r.prompter.Out()

	fmt.Fprintln(out, "Erase levels:")
	printLevels(out)

	answer, err := r.prompter.Ask(ctx, "Enter the erase level (0-4):")
	if err != nil {
		return 0, promptError(err)
	}

	return erase.ParseLevel(answer)
}

func (r *Resolver) validateDevice(ctx context.Context, device string) (string, error) {
	exists, err := r.provider.DeviceExists(device)
	if err != nil {
		return "", failure.Mark(err, failure.KindEnvironment)
	}

	if !exists {
		return "", failure.Mark(
			errors.WithHint(errors.Wrapf(ErrDeviceNotFound, "%q", device), "run \"diskutil list\" to see the attached disks"),
			failure.KindValidation,
		)
	}

	whole, ok := partitioning.WholeDisk(device)
	if !ok {
		// symlinks and other aliases resolve through diskutil
		if info, infoErr := r.provider.Info(ctx, device); infoErr == nil {
			whole, ok = partitioning.WholeDisk(info.Identifier)
		}
	}

	if !ok {
		return "", failure.Mark(errors.Wrapf(ErrNotADisk, "%q", device), failure.KindValidation)
	}

	boot, err := r.boot(ctx)
	if err != nil {
		return "", err
	}

	for _, disk := range boot {
		if partitioning.SameDisk(whole, disk) {
			r.logger.Warn("refusing boot disk", zap.String("device", device), zap.String("boot_disk", disk))

			return "", failure.Mark(errors.Wrapf(ErrBootDisk, "%s", device), failure.KindValidation)
		}
	}

	return device, nil
}

func (r *Resolver) boot(ctx context.Context) ([]string, error) {
	if r.bootDisks != nil {
		return r.bootDisks, nil
	}

	disks, err := r.provider.BootDisks(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, failure.Mark(errors.Wrap(ctxErr, "interrupted"), failure.KindAborted)
		}

		return nil, failure.Mark(errors.WithHint(err, "the boot disk must be known before anything is erased"), failure.KindEnvironment)
	}

	r.bootDisks = disks

	return disks, nil
}

func (r *Resolver) lookup(ctx context.Context, req erase.Request) diskinfo.Info {
	logger := r.logger.With(zap.String("device", req.Device))

	info, err := r.provider.Info(ctx, req.Device)
	if err != nil {
		logger.Warn("failed to read disk info", zap.Error(err))

		info = diskinfo.Info{Device: req.Device}
	}

	if req.SerialOverride == nil {
		serial, serialErr := r.provider.Serial(ctx, req.Device)
		if serialErr != nil {
			logger.Info("serial number not detected", zap.Error(serialErr))
		}

		info.Serial = serial
	}

	layout, err := r.provider.Layout(ctx, req.Device)
	if err != nil {
		logger.Warn("failed to read partition layout", zap.Error(err))
	}

	info.Layout = layout

	return info
}

// promptError classifies a failed answer: missing input is a usage error.
func promptError(err error) error {
	if failure.KindOf(err) != failure.KindUnknown {
		return err
	}

	return failure.Mark(err, failure.KindUsage)
}

func printLevels(w io.Writer) {
	for _, l := range erase.Levels() {
		fmt.Fprintf(w, "  %s - %s\n", l, l.Description())
	}
}

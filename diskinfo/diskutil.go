// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package diskinfo

import (
	"context"
	"encoding/json"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/siderolabs/gen/xslices"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"howett.net/plist"

	"github.com/siderolabs/diskerase/internal/run"
	"github.com/siderolabs/diskerase/partitioning"
)

// smartctl exit status bits 0 and 1 mean the command line or the device open failed.
const smartctlFatalBits = 0x3

// Option configures Diskutil.
type Option func(*Diskutil)

// WithDiskutil sets the diskutil binary.
func WithDiskutil(path string) Option {
	return func(d *Diskutil) {
		d.diskutil = path
	}
}

// WithSmartctl sets the smartctl binary.
func WithSmartctl(path string) Option {
	return func(d *Diskutil) {
		d.smartctl = path
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Diskutil) {
		d.logger = logger
	}
}

// WithNodeCheck replaces the device node check.
func WithNodeCheck(check func(path string) (bool, error)) Option {
	return func(d *Diskutil) {
		d.nodeCheck = check
	}
}

// Diskutil implements Provider with diskutil and smartctl.
type Diskutil struct {
	runner    run.Runner
	logger    *zap.Logger
	nodeCheck func(string) (bool, error)
	diskutil  string
	smartctl  string
}

// NewDiskutil creates a new Diskutil provider.
func NewDiskutil(runner run.Runner, opts ...Option) *Diskutil {
	d := &Diskutil{
		runner:    runner,
		logger:    zap.NewNop(),
		nodeCheck: IsDeviceNode,
		diskutil:  "diskutil",
		smartctl:  "smartctl",
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// IsDeviceNode is true if path is a block or character device.
func IsDeviceNode(path string) (bool, error) {
	var st unix.Stat_t

	if err := unix.Stat(path, &st); err != nil {
		if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ENOTDIR) {
			return false, nil
		}

		return false, errors.Wrapf(err, "failed to stat %s", path)
	}

	switch uint32(st.Mode) & unix.S_IFMT { //nolint:unconvert
	case unix.S_IFBLK, unix.S_IFCHR:
		return true, nil
	default:
		return false, nil
	}
}

// DeviceExists implements Provider.
func (d *Diskutil) DeviceExists(device string) (bool, error) {
	return d.nodeCheck(device)
}

// ListDisks implements Provider.
func (d *Diskutil) ListDisks(ctx context.Context) (string, error) {
	return d.output(ctx, d.diskutil, "list")
}

// Layout implements Provider.
func (d *Diskutil) Layout(ctx context.Context, device string) (string, error) {
	return d.output(ctx, d.diskutil, "list", device)
}

// Info implements Provider.
func (d *Diskutil) Info(ctx context.Context, device string) (Info, error) {
	raw, err := d.info(ctx, device)
	if err != nil {
		return Info{}, err
	}

	info := Info{
		Device:     raw.DeviceNode,
		Identifier: raw.DeviceIdentifier,
		Model:      strings.TrimSpace(raw.MediaName),
		Protocol:   raw.BusProtocol,
		Size:       raw.TotalSize,
		Internal:   raw.Internal,
		SolidState: raw.SolidState,
	}

	if info.Model == "" {
		info.Model = strings.TrimSpace(raw.IORegistryEntryName)
	}

	if info.Size == 0 {
		info.Size = raw.Size
	}

	if info.Device == "" {
		info.Device = device
	}

	return info, nil
}

// Serial implements Provider.
func (d *Diskutil) Serial(ctx context.Context, device string) (string, error) {
	res, err := d.runner.Run(ctx, d.smartctl, "-i", "--json", device)
	if err != nil {
		return "", err
	}

	if res.ExitCode&smartctlFatalBits != 0 {
		return "", errors.Newf("smartctl exited with status %d", res.ExitCode)
	}

	var parsed smartctlInfo

	if err = json.Unmarshal([]byte(res.Output), &parsed); err != nil {
		return "", errors.Wrap(err, "failed to decode smartctl output")
	}

	serial := strings.TrimSpace(parsed.SerialNumber)
	if serial == "" {
		return "", errors.Wrap(ErrNotDetected, "serial number")
	}

	return serial, nil
}

// BootDisks implements Provider.
//
// The root volume's parent disk and the APFS physical stores behind it are
// all considered boot disks.
func (d *Diskutil) BootDisks(ctx context.Context) ([]string, error) {
	root, err := d.info(ctx, "/")
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, ErrBootDiskUnknown.Error()), ErrBootDiskUnknown)
	}

	stores := root.APFSPhysicalStores

	if len(stores) == 0 && root.ParentWholeDisk != "" {
		container, err := d.info(ctx, root.ParentWholeDisk)
		if err != nil {
			d.logger.Debug("failed to inspect root container", zap.String("disk", root.ParentWholeDisk), zap.Error(err))
		} else {
			stores = container.APFSPhysicalStores
		}
	}

	candidates := append(
		[]string{root.ParentWholeDisk, root.DeviceIdentifier},
		xslices.Map(stores, func(s apfsPhysicalStore) string { return s.DeviceIdentifier })...,
	)

	var disks []string

	for _, candidate := range candidates {
		whole, ok := partitioning.WholeDisk(candidate)
		if !ok || slices.Contains(disks, whole) {
			continue
		}

		disks = append(disks, whole)
	}

	if len(disks) == 0 {
		return nil, ErrBootDiskUnknown
	}

	d.logger.Debug("boot disks detected", zap.Strings("disks", disks))

	return disks, nil
}

func (d *Diskutil) info(ctx context.Context, target string) (diskutilInfo, error) {
	out, err := d.output(ctx, d.diskutil, "info", "-plist", target)
	if err != nil {
		return diskutilInfo{}, err
	}

	var info diskutilInfo

	if _, err = plist.Unmarshal([]byte(out), &info); err != nil {
		return diskutilInfo{}, errors.Wrapf(err, "failed to decode diskutil info for %s", target)
	}

	return info, nil
}

func (d *Diskutil) output(ctx context.Context, name string, args ...string) (string, error) {
	res, err := d.runner.Run(ctx, name, args...)
	if err != nil {
		return "", err
	}

	if !res.OK() {
		return "", errors.Newf("%s exited with status %d: %s", run.Line(name, args...), res.ExitCode, strings.TrimSpace(res.Output))
	}

	return res.Output, nil
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package diskinfo provides disk facts (model, serial, size, layout, boot disk) from diskutil and smartctl.
package diskinfo

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
)

// Common errors.
var (
	ErrNotDetected     = errors.New("not detected")
	ErrBootDiskUnknown = errors.New("failed to determine the boot disk")
)

// Info describes a disk.
type Info struct { //nolint:govet
	// Device node, e.g. /dev/disk2.
	Device string
	// Identifier, e.g. disk2.
	Identifier string

	Model    string
	Serial   string
	Protocol string
	// Layout is the partition layout as printed by diskutil list.
	Layout string

	// Size in bytes.
	Size uint64

	Internal   bool
	SolidState bool
}

// HumanSize renders the size for people, "unknown" if not detected.
func (i Info) HumanSize() string {
	if i.Size == 0 {
		return "unknown"
	}

	return fmt.Sprintf("%s (%d bytes)", humanize.Bytes(i.Size), i.Size)
}

// Connection describes how the disk is attached, e.g. "USB, external, solid state".
//
// It is empty when diskutil reported no bus protocol.
func (i Info) Connection() string {
	if i.Protocol == "" {
		return ""
	}

	parts := []string{i.Protocol, "external"}

	if i.Internal {
		parts[1] = "internal"
	}

	if i.SolidState {
		parts = append(parts, "solid state")
	}

	return strings.Join(parts, ", ")
}

// Provider looks up disk facts.
type Provider interface {
	// DeviceExists is true if the path is a block or character device node.
	DeviceExists(device string) (bool, error)
	// BootDisks returns the whole-disk identifiers hosting the running system.
	BootDisks(ctx context.Context) ([]string, error)
	// ListDisks returns the printable list of attached disks.
	ListDisks(ctx context.Context) (string, error)
	// Info returns the facts diskutil knows about the device.
	Info(ctx context.Context, device string) (Info, error)
	// Serial returns the serial number reported by SMART.
	Serial(ctx context.Context, device string) (string, error)
	// Layout returns the printable partition layout of the device.
	Layout(ctx context.Context, device string) (string, error)
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package erase holds the erase request and runs the secure erase through diskutil.
package erase

import (
	"github.com/siderolabs/go-pointer"

	"github.com/siderolabs/diskerase/diskinfo"
)

// None is the sentinel for disk facts which are neither given nor detected.
const None = "none"

// Request is a fully resolved erase request.
//
// It is passed by value once confirmed.
type Request struct { //nolint:govet
	// Device node, e.g. /dev/disk2.
	Device string
	Level  Level

	Pretend          bool
	SkipConfirmation bool
	NoLog            bool

	Label          *string
	ModelOverride  *string
	SerialOverride *string

	// Disk holds the facts detected through diskinfo.
	Disk diskinfo.Info
}

// Model returns the override, else the detected model, else None.
func (r Request) Model() string {
	return pick(r.ModelOverride, r.Disk.Model)
}

// Serial returns the override, else the detected serial, else None.
func (r Request) Serial() string {
	return pick(r.SerialOverride, r.Disk.Serial)
}

// HasSerial is true if a serial number is known.
func (r Request) HasSerial() bool {
	return r.Serial() != None
}

// LabelText returns the label or an empty string.
func (r Request) LabelText() string {
	return pointer.SafeDeref(r.Label)
}

func pick(override *string, detected string) string {
	if v := pointer.SafeDeref(override); v != "" {
		return v
	}

	if detected != "" {
		return detected
	}

	return None
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package partitioning implements BSD device naming helpers for disks and their slices.
package partitioning

import (
	"regexp"
	"strings"
)

const devPrefix = "/dev/"

var wholeDiskRe = regexp.MustCompile(`^r?(disk[0-9]+)(s[0-9]+)*$`)

// Identifier strips the /dev/ prefix from a device node.
func Identifier(device string) string {
	return strings.TrimPrefix(device, devPrefix)
}

// WholeDisk returns the identifier of the whole disk the device belongs to.
//
// Raw nodes and slices resolve to their whole disk: /dev/rdisk2s1 -> disk2.
// The second return value is false if the name is not a disk device name.
func WholeDisk(device string) (string, bool) {
	m := wholeDiskRe.FindStringSubmatch(Identifier(device))
	if m == nil {
		return "", false
	}

	return m[1], true
}

// SameDisk is true if both devices live on the same whole disk.
func SameDisk(a, b string) bool {
	wa, ok := WholeDisk(a)
	if !ok {
		return false
	}

	wb, ok := WholeDisk(b)
	if !ok {
		return false
	}

	return wa == wb
}

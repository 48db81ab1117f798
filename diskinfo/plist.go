// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package diskinfo

// diskutilInfo is the subset of "diskutil info -plist <disk>" output in use.
type diskutilInfo struct { //nolint:govet
	APFSPhysicalStores  []apfsPhysicalStore `plist:"APFSPhysicalStores"`
	BusProtocol         string              `plist:"BusProtocol"`
	DeviceIdentifier    string              `plist:"DeviceIdentifier"`
	DeviceNode          string              `plist:"DeviceNode"`
	IORegistryEntryName string              `plist:"IORegistryEntryName"`
	Internal            bool                `plist:"Internal"`
	MediaName           string              `plist:"MediaName"`
	MountPoint          string              `plist:"MountPoint"`
	ParentWholeDisk     string              `plist:"ParentWholeDisk"`
	Size                uint64              `plist:"Size"`
	SolidState          bool                `plist:"SolidState"`
	TotalSize           uint64              `plist:"TotalSize"`
}

type apfsPhysicalStore struct {
	DeviceIdentifier string `plist:"APFSPhysicalStore"`
}

// smartctlInfo is the subset of "smartctl -i --json" output in use.
type smartctlInfo struct {
	ModelName    string `json:"model_name"`
	SerialNumber string `json:"serial_number"`
	Smartctl     struct {
		ExitStatus int `json:"exit_status"`
	} `json:"smartctl"`
}

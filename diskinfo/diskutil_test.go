// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package diskinfo_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/diskerase/diskinfo"
	"github.com/siderolabs/diskerase/internal/run"
)

const externalDiskPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>BusProtocol</key>
	<string>USB</string>
	<key>DeviceIdentifier</key>
	<string>disk4</string>
	<key>DeviceNode</key>
	<string>/dev/disk4</string>
	<key>IORegistryEntryName</key>
	<string>Samsung Portable SSD T7 Media</string>
	<key>Internal</key>
	<false/>
	<key>MediaName</key>
	<string>Samsung Portable SSD T7 </string>
	<key>Size</key>
	<integer>1000204886016</integer>
	<key>SolidState</key>
	<true/>
	<key>TotalSize</key>
	<integer>1000204886016</integer>
	<key>WholeDisk</key>
	<true/>
</dict>
</plist>
`

const rootVolumePlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>APFSPhysicalStores</key>
	<array>
		<dict>
			<key>APFSPhysicalStore</key>
			<string>disk0s2</string>
		</dict>
	</array>
	<key>DeviceIdentifier</key>
	<string>disk3s1s1</string>
	<key>DeviceNode</key>
	<string>/dev/disk3s1s1</string>
	<key>MountPoint</key>
	<string>/</string>
	<key>ParentWholeDisk</key>
	<string>disk3</string>
	<key>WholeDisk</key>
	<false/>
</dict>
</plist>
`

const rootNoStoresPlist = `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0">
<dict>
	<key>DeviceIdentifier</key>
	<string>disk1s1</string>
	<key>ParentWholeDisk</key>
	<string>disk1</string>
</dict>
</plist>
`

const containerPlist = `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0">
<dict>
	<key>APFSPhysicalStores</key>
	<array>
		<dict>
			<key>APFSPhysicalStore</key>
			<string>disk0s2</string>
		</dict>
	</array>
	<key>DeviceIdentifier</key>
	<string>disk1</string>
</dict>
</plist>
`

func TestInfo(t *testing.T) {
	t.Parallel()

	fake := run.NewFake().OnOutput("diskutil info -plist /dev/disk4", externalDiskPlist)

	info, err := diskinfo.NewDiskutil(fake).Info(context.Background(), "/dev/disk4")
	require.NoError(t, err)

	assert.Equal(t, diskinfo.Info{
		Device:     "/dev/disk4",
		Identifier: "disk4",
		Model:      "Samsung Portable SSD T7",
		Protocol:   "USB",
		Size:       1000204886016,
		SolidState: true,
	}, info)
	assert.Equal(t, "USB, external, solid state", info.Connection())
}

func TestInfoFailure(t *testing.T) {
	t.Parallel()

	fake := run.NewFake().On("diskutil info -plist /dev/disk9", run.Result{
		ExitCode: 1,
		Output:   "Could not find disk: /dev/disk9",
	})

	_, err := diskinfo.NewDiskutil(fake).Info(context.Background(), "/dev/disk9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Could not find disk")
}

func TestBootDisks(t *testing.T) {
	t.Parallel()

	for _, test := range []struct { //nolint:govet
		name  string
		setup func(*run.Fake)

		expected []string
	}{
		{
			name: "apfs volume with physical store",
			setup: func(f *run.Fake) {
				f.OnOutput("diskutil info -plist /", rootVolumePlist)
			},
			expected: []string{"disk3", "disk0"},
		},
		{
			name: "physical store from container",
			setup: func(f *run.Fake) {
				f.OnOutput("diskutil info -plist /", rootNoStoresPlist)
				f.OnOutput("diskutil info -plist disk1", containerPlist)
			},
			expected: []string{"disk1", "disk0"},
		},
		{
			name: "container lookup fails",
			setup: func(f *run.Fake) {
				f.OnOutput("diskutil info -plist /", rootNoStoresPlist)
				f.On("diskutil info -plist disk1", run.Result{ExitCode: 1})
			},
			expected: []string{"disk1"},
		},
	} {
		test := test

		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			fake := run.NewFake()
			test.setup(fake)

			disks, err := diskinfo.NewDiskutil(fake).BootDisks(context.Background())
			require.NoError(t, err)
			assert.Equal(t, test.expected, disks)
		})
	}
}

func TestBootDisksUnknown(t *testing.T) {
	t.Parallel()

	fake := run.NewFake().On("diskutil info -plist /", run.Result{ExitCode: 1})

	_, err := diskinfo.NewDiskutil(fake).BootDisks(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, diskinfo.ErrBootDiskUnknown))

	fake = run.NewFake().OnOutput("diskutil info -plist /", `<?xml version="1.0" encoding="UTF-8"?><plist version="1.0"><dict/></plist>`)

	_, err = diskinfo.NewDiskutil(fake).BootDisks(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, diskinfo.ErrBootDiskUnknown))
}

func TestSerial(t *testing.T) {
	t.Parallel()

	for _, test := range []struct { //nolint:govet
		name   string
		result run.Result

		expected string
		fails    bool
	}{
		{
			name:     "nvme",
			result:   run.Result{Output: `{"model_name":"APPLE SSD AP0512Q","serial_number":"0ba0123456789abc","smartctl":{"exit_status":0}}`},
			expected: "0ba0123456789abc",
		},
		{
			name:     "non-fatal status bits",
			result:   run.Result{ExitCode: 4, Output: `{"serial_number":" S5SXNG0R123456 "}`},
			expected: "S5SXNG0R123456",
		},
		{
			name:   "device open failed",
			result: run.Result{ExitCode: 2, Output: `{"smartctl":{"exit_status":2}}`},
			fails:  true,
		},
		{
			name:   "no serial",
			result: run.Result{Output: `{"model_name":"USB Stick"}`},
			fails:  true,
		},
		{
			name:   "garbage",
			result: run.Result{Output: `smartctl 7.4`},
			fails:  true,
		},
	} {
		test := test

		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			fake := run.NewFake().On("smartctl -i --json /dev/disk4", test.result)

			serial, err := diskinfo.NewDiskutil(fake).Serial(context.Background(), "/dev/disk4")
			if test.fails {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expected, serial)
		})
	}
}

func TestListAndLayout(t *testing.T) {
	t.Parallel()

	fake := run.NewFake().
		OnOutput("/usr/sbin/diskutil list", "/dev/disk0 (internal):\n").
		OnOutput("/usr/sbin/diskutil list /dev/disk4", "/dev/disk4 (external, physical):\n")

	provider := diskinfo.NewDiskutil(fake, diskinfo.WithDiskutil("/usr/sbin/diskutil"))

	list, err := provider.ListDisks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/dev/disk0 (internal):\n", list)

	layout, err := provider.Layout(context.Background(), "/dev/disk4")
	require.NoError(t, err)
	assert.Equal(t, "/dev/disk4 (external, physical):\n", layout)
}

func TestIsDeviceNode(t *testing.T) {
	t.Parallel()

	ok, err := diskinfo.IsDeviceNode(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	regular := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(regular, nil, 0o644))

	ok, err = diskinfo.IsDeviceNode(regular)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = diskinfo.IsDeviceNode("/dev/null")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHumanSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unknown", diskinfo.Info{}.HumanSize())
	assert.Equal(t, "1.0 TB (1000204886016 bytes)", diskinfo.Info{Size: 1000204886016}.HumanSize())
	assert.Equal(t, "16 GB (16008609792 bytes)", diskinfo.Info{Size: 16008609792}.HumanSize())
}

func TestConnection(t *testing.T) {
	t.Parallel()

	assert.Empty(t, diskinfo.Info{Internal: true}.Connection())
	assert.Equal(t, "USB, external", diskinfo.Info{Protocol: "USB"}.Connection())
	assert.Equal(t, "Apple Fabric, internal, solid state", diskinfo.Info{Protocol: "Apple Fabric", Internal: true, SolidState: true}.Connection())
}

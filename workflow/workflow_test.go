// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package workflow_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/diskerase/confirm"
	"github.com/siderolabs/diskerase/internal/config"
	"github.com/siderolabs/diskerase/internal/failure"
	"github.com/siderolabs/diskerase/internal/run"
	"github.com/siderolabs/diskerase/preflight"
	"github.com/siderolabs/diskerase/resolve"
	"github.com/siderolabs/diskerase/workflow"
)

const rootPlist = `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0">
<dict>
	<key>DeviceIdentifier</key>
	<string>disk1s1</string>
	<key>ParentWholeDisk</key>
	<string>disk0</string>
</dict>
</plist>
`

const disk9Plist = `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0">
<dict>
	<key>DeviceIdentifier</key>
	<string>disk9</string>
	<key>DeviceNode</key>
	<string>/dev/disk9</string>
	<key>MediaName</key>
	<string>Samsung SSD 870</string>
	<key>TotalSize</key>
	<integer>500107862016</integer>
	<key>WholeDisk</key>
	<true/>
</dict>
</plist>
`

const (
	unmountLine = "diskutil unmountDisk /dev/disk9"
	eraseLine   = "diskutil secureErase 2 /dev/disk9"
)

type fixture struct {
	fake   *run.Fake
	out    bytes.Buffer
	logDir string
	euid   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	return &fixture{
		fake: run.NewFake().
			OnOutput("diskutil info -plist /", rootPlist).
			OnOutput("diskutil info -plist /dev/disk9", disk9Plist).
			OnOutput("smartctl -i --json /dev/disk9", `{"serial_number":"S5Y1NG0R123456"}`).
			OnOutput("diskutil list /dev/disk9", "/dev/disk9 (external, physical):\n").
			OnOutput("diskutil list", "/dev/disk0 (internal, physical):\n/dev/disk9 (external, physical):\n").
			OnOutput(unmountLine, "Unmount of all volumes on disk9 was successful").
			OnOutput(eraseLine, "Finished erase on disk9"),
		logDir: filepath.Join(t.TempDir(), "logs"),
	}
}

func (f *fixture) run(input string, args ...string) error {
	return f.runContext(context.Background(), strings.NewReader(input), args...)
}

func (f *fixture) runContext(ctx context.Context, in io.Reader, args ...string) error {
	env := preflight.Environment{
		GOOS:     "darwin",
		LookPath: func(name string) (string, error) { return name, nil },
		Geteuid:  func() int { return f.euid },
	}

	w := workflow.New(in, &f.out,
		workflow.WithRunner(f.fake),
		workflow.WithEnvironment(env),
		workflow.WithConfig(config.Config{LogDir: f.logDir, Diskutil: "diskutil", Smartctl: "smartctl"}),
		workflow.WithNodeCheck(func(path string) (bool, error) {
			return slices.Contains([]string{"/dev/disk0", "/dev/disk9"}, path), nil
		}),
		workflow.WithClock(func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }),
		workflow.WithGetenv(func(string) string { return "" }),
	)

	return w.Run(ctx, args)
}

func (f *fixture) logs(t *testing.T) []string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(f.logDir, "*.log"))
	require.NoError(t, err)

	return matches
}

func TestPretendRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.euid = 501

	require.NoError(t, f.run("", "--pretend", "--level", "2", "--disk", "/dev/disk9", "--skip"))

	out := f.out.String()

	assert.Contains(t, out, "SECURE ERASE SUMMARY")
	assert.Contains(t, out, "PRETEND MODE")
	assert.Contains(t, out, "[pretend] Unmount of /dev/disk9 simulated.")
	assert.Contains(t, out, "[pretend] Erase simulated, no data was changed.")
	assert.Contains(t, out, "Pretend run completed in 00:00:00, no data was changed.")

	assert.False(t, f.fake.Called(unmountLine))
	assert.False(t, f.fake.Called(eraseLine))
	assert.Empty(t, f.logs(t))
}

func TestBootDiskRefused(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	err := f.run("", "--disk", "/dev/disk0")
	require.Error(t, err)

	assert.True(t, errors.Is(err, resolve.ErrBootDisk))
	assert.Contains(t, err.Error(), "cannot securely erase the boot disk")
	assert.Equal(t, failure.KindValidation, failure.KindOf(err))
	assert.Equal(t, 1, failure.ExitCode(err))
	assert.NotContains(t, f.out.String(), "Enter")
	assert.Empty(t, f.logs(t))
}

func TestInteractiveRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	require.NoError(t, f.run("/dev/disk9\n2\ntak\n", "--label", "Zamówienie 42"))

	out := f.out.String()

	diskPrompt := strings.Index(out, "Enter the disk to erase")
	levelPrompt := strings.Index(out, "Enter the erase level")
	summary := strings.Index(out, "SECURE ERASE SUMMARY")
	token := strings.Index(out, `Type "tak" to erase /dev/disk9`)

	require.NotEqual(t, -1, diskPrompt)
	assert.Less(t, diskPrompt, levelPrompt)
	assert.Less(t, levelPrompt, summary)
	assert.Less(t, summary, token)
	assert.Contains(t, out, "Erase of /dev/disk9 completed in 00:00:00.")

	assert.Equal(t, []string{unmountLine, eraseLine}, f.fake.Calls[len(f.fake.Calls)-2:])

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, "Samsung-SSD-870_S5Y1NG0R123456_Zamowienie-42_2026-10-19_09-30-00.log", filepath.Base(logs[0]))
	assert.Contains(t, out, "Log written to "+logs[0])

	contents, err := os.ReadFile(logs[0])
	require.NoError(t, err)

	assert.Contains(t, string(contents), "Erase completed")
	assert.Contains(t, string(contents), "Elapsed time:    00:00:00")
}

func TestRejected(t *testing.T) {
	t.Parallel()

	for _, answer := range []string{"TAK\n", "yes\n", "\n", ""} {
		answer := answer

		t.Run(strings.TrimSpace(answer), func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)

			err := f.run(answer, "--disk", "/dev/disk9", "--level", "2")
			require.Error(t, err)

			assert.True(t, errors.Is(err, confirm.ErrRejected))
			assert.Equal(t, failure.KindAborted, failure.KindOf(err))
			assert.Contains(t, f.out.String(), "no erase performed.")
			assert.False(t, f.fake.Called(unmountLine))
			assert.False(t, f.fake.Called(eraseLine))
			assert.Empty(t, f.logs(t))
		})
	}
}

func TestInterruptedAtConfirmation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	r, w := io.Pipe()
	t.Cleanup(func() { w.Close() }) //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- f.runContext(ctx, r, "--disk", "/dev/disk9", "--level", "2")
	}()

	var err error

	select {
	case err = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after the context was cancelled")
	}

	require.Error(t, err)
	assert.Equal(t, failure.KindAborted, failure.KindOf(err))
	assert.Equal(t, 1, failure.ExitCode(err))
	assert.Contains(t, f.out.String(), `Type "tak" to erase /dev/disk9`)
	assert.False(t, f.fake.Called(unmountLine))
	assert.False(t, f.fake.Called(eraseLine))
	assert.Empty(t, f.logs(t))
}

func TestDuplicateFlag(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	err := f.run("", "--disk", "/dev/disk9", "-d", "/dev/disk9")
	require.Error(t, err)

	assert.True(t, errors.Is(err, resolve.ErrDuplicateOption))
	assert.Equal(t, failure.KindUsage, failure.KindOf(err))
	assert.Empty(t, f.fake.Calls)
	assert.Empty(t, f.out.String())
}

func TestHelp(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.euid = 501

	require.NoError(t, f.run("", "--disk", "/dev/disk9", "--help"))

	assert.Contains(t, f.out.String(), "Usage: diskerase")
	assert.Empty(t, f.fake.Calls)
}

func TestNotRoot(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.euid = 501

	err := f.run("", "--disk", "/dev/disk9", "--level", "2")
	require.Error(t, err)

	assert.True(t, errors.Is(err, preflight.ErrNotRoot))
	assert.Equal(t, failure.KindEnvironment, failure.KindOf(err))
	assert.Empty(t, f.fake.Calls)
}

func TestEraseFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fake.On(eraseLine, run.Result{ExitCode: 1, Output: "Error: -69877: Couldn't open device"})

	err := f.run("", "--disk", "/dev/disk9", "--level", "2", "--skip")
	require.Error(t, err)

	assert.Equal(t, failure.KindOperational, failure.KindOf(err))
	assert.Contains(t, f.out.String(), "Erase of /dev/disk9 FAILED after 00:00:00.")

	logs := f.logs(t)
	require.Len(t, logs, 1)

	contents, err := os.ReadFile(logs[0])
	require.NoError(t, err)

	assert.Contains(t, string(contents), "Erase FAILED")
	assert.Contains(t, string(contents), "Elapsed time")
}

func TestDeprecatedSkip(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	require.NoError(t, f.run("", "-d", "/dev/disk9", "-lv", "2", "-o", "-nl"))

	assert.Contains(t, f.out.String(), "Warning: -o is deprecated")
	assert.True(t, f.fake.Called(eraseLine))
	assert.Empty(t, f.logs(t))
}

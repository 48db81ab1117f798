// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package preflight checks the environment before any disk is touched.
package preflight

import (
	"os"
	"os/exec"
	"runtime"

	"github.com/cockroachdb/errors"

	"github.com/siderolabs/diskerase/internal/failure"
)

// Environment errors.
var (
	ErrUnsupportedOS = errors.New("unsupported operating system")
	ErrToolMissing   = errors.New("required tool not found")
	ErrNotRoot       = errors.New("insufficient privileges")
)

// Tool is a required external program.
type Tool struct {
	Name string
	// Path or name looked up on PATH.
	Path string
	Hint string
}

// Environment is what the checks look at.
type Environment struct {
	LookPath func(string) (string, error)
	Geteuid  func() int
	GOOS     string
}

// Host returns the environment of the running process.
func Host() Environment {
	return Environment{
		GOOS:     runtime.GOOS,
		LookPath: exec.LookPath,
		Geteuid:  os.Geteuid,
	}
}

// Check verifies the OS, the tools and the privileges.
//
// Root is not required for pretend runs.
// Tools are returned with their resolved paths.
func Check(env Environment, tools []Tool, pretend bool) ([]Tool, error) {
	if env.GOOS != "darwin" {
		return nil, failure.Mark(
			errors.WithHint(errors.Wrapf(ErrUnsupportedOS, "%s", env.GOOS), "diskutil secureErase is only available on macOS"),
			failure.KindEnvironment,
		)
	}

	resolved := make([]Tool, 0, len(tools))

	for _, tool := range tools {
		path, err := env.LookPath(tool.Path)
		if err != nil {
			err = errors.Wrapf(ErrToolMissing, "%s", tool.Name)

			if tool.Hint != "" {
				err = errors.WithHint(err, tool.Hint)
			}

			return nil, failure.Mark(err, failure.KindEnvironment)
		}

		tool.Path = path
		resolved = append(resolved, tool)
	}

	if !pretend && env.Geteuid() != 0 {
		return nil, failure.Mark(
			errors.WithHint(ErrNotRoot, "re-run with sudo, or use --pretend for a dry run"),
			failure.KindEnvironment,
		)
	}

	return resolved, nil
}

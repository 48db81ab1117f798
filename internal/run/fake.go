// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package run

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
)

// Fake is a scripted Runner for tests.
//
// Responses are keyed by the command line as rendered by Line.
type Fake struct {
	responses map[string]Result
	failures  map[string]error

	Calls []string
}

// NewFake creates an empty Fake.
func NewFake() *Fake {
	return &Fake{
		responses: map[string]Result{},
		failures:  map[string]error{},
	}
}

// On scripts the result for the command line.
func (f *Fake) On(line string, res Result) *Fake {
	f.responses[line] = res

	return f
}

// OnOutput scripts a successful run printing output.
func (f *Fake) OnOutput(line, output string) *Fake {
	return f.On(line, Result{Output: output})
}

// OnError scripts a failure to start the command.
func (f *Fake) OnError(line string, err error) *Fake {
	f.failures[line] = err

	return f
}

// Run implements Runner.
func (f *Fake) Run(_ context.Context, name string, args ...string) (Result, error) {
	line := Line(name, args...)

	f.Calls = append(f.Calls, line)

	if err, ok := f.failures[line]; ok {
		return Result{}, err
	}

	if res, ok := f.responses[line]; ok {
		return res, nil
	}

	return Result{}, errors.Newf("unexpected command %q", line)
}

// Called reports whether the command line was run.
func (f *Fake) Called(line string) bool {
	return slices.Contains(f.Calls, line)
}

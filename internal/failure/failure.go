// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package failure classifies errors of the erase workflow and maps them to exit codes.
package failure

import (
	"github.com/cockroachdb/errors"
)

// Kind is the class of a workflow error.
type Kind int

// Error kinds.
const (
	KindUnknown Kind = iota
	KindEnvironment
	KindUsage
	KindValidation
	KindAborted
	KindOperational
)

// Markers attached to errors with errors.Mark.
var (
	Environment = errors.New("environment error")
	Usage       = errors.New("usage error")
	Validation  = errors.New("validation error")
	Aborted     = errors.New("aborted by operator")
	Operational = errors.New("operational error")
)

func (k Kind) String() string {
	switch k {
	case KindEnvironment:
		return "environment"
	case KindUsage:
		return "usage"
	case KindValidation:
		return "validation"
	case KindAborted:
		return "aborted"
	case KindOperational:
		return "operational"
	case KindUnknown:
		fallthrough
	default:
		return "unknown"
	}
}

// Mark tags err with the marker of kind k.
func Mark(err error, k Kind) error {
	if err == nil {
		return nil
	}

	switch k {
	case KindEnvironment:
		return errors.Mark(err, Environment)
	case KindUsage:
		return errors.Mark(err, Usage)
	case KindValidation:
		return errors.Mark(err, Validation)
	case KindAborted:
		return errors.Mark(err, Aborted)
	case KindOperational:
		return errors.Mark(err, Operational)
	case KindUnknown:
	}

	return err
}

// KindOf returns the kind err was marked with.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, Environment):
		return KindEnvironment
	case errors.Is(err, Usage):
		return KindUsage
	case errors.Is(err, Validation):
		return KindValidation
	case errors.Is(err, Aborted):
		return KindAborted
	case errors.Is(err, Operational):
		return KindOperational
	default:
		return KindUnknown
	}
}

// ExitCode maps err to the process exit status.
//
// Every failure, operator abort included, exits with 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	return 1
}

// Hints returns the remediation hints attached anywhere in the error chain.
func Hints(err error) []string {
	return errors.GetAllHints(err)
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package resolve

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/siderolabs/go-pointer"

	"github.com/siderolabs/diskerase/internal/failure"
)

// Usage errors.
var (
	ErrUnknownOption   = errors.New("unknown option")
	ErrDuplicateOption = errors.New("option given more than once")
	ErrMissingValue    = errors.New("missing value for option")
)

// Flags is the parsed command line.
//
// Value flags are nil when not given.
type Flags struct { //nolint:govet
	Help    bool
	Pretend bool
	Skip    bool
	NoLog   bool

	Disk   *string
	Level  *string
	Label  *string
	Model  *string
	Serial *string

	// Deprecated lists deprecated spellings found on the command line.
	Deprecated []string
}

type flagBit uint16

const (
	bitHelp flagBit = 1 << iota
	bitPretend
	bitSkip
	bitNoLog
	bitDisk
	bitLevel
	bitLabel
	bitModel
	bitSerial
)

type flagDef struct {
	bit        flagBit
	name       string
	takesValue bool
	deprecated bool
}

var flagDefs = map[string]flagDef{
	"-h":        {bit: bitHelp, name: "--help"},
	"--help":    {bit: bitHelp, name: "--help"},
	"-p":        {bit: bitPretend, name: "--pretend"},
	"--pretend": {bit: bitPretend, name: "--pretend"},
	"-s":        {bit: bitSkip, name: "--skip"},
	"--skip":    {bit: bitSkip, name: "--skip"},
	"-o":        {bit: bitSkip, name: "--skip", deprecated: true},
	"-nl":       {bit: bitNoLog, name: "--nolog"},
	"--nolog":   {bit: bitNoLog, name: "--nolog"},
	"-d":        {bit: bitDisk, name: "--disk", takesValue: true},
	"--disk":    {bit: bitDisk, name: "--disk", takesValue: true},
	"-lv":       {bit: bitLevel, name: "--level", takesValue: true},
	"--level":   {bit: bitLevel, name: "--level", takesValue: true},
	"-la":       {bit: bitLabel, name: "--label", takesValue: true},
	"--label":   {bit: bitLabel, name: "--label", takesValue: true},
	"-m":        {bit: bitModel, name: "--model", takesValue: true},
	"--model":   {bit: bitModel, name: "--model", takesValue: true},
	"-sn":       {bit: bitSerial, name: "--serial", takesValue: true},
	"--serial":  {bit: bitSerial, name: "--serial", takesValue: true},
}

// Parse parses the command line arguments.
//
// Parsing stops at the first help flag. Values are taken verbatim.
func Parse(args []string) (Flags, error) {
	var (
		flags Flags
		seen  flagBit
	)

	for i := 0; i < len(args); i++ {
		arg := args[i]

		def, ok := flagDefs[arg]
		if !ok {
			return Flags{}, usageError(errors.Wrapf(ErrUnknownOption, "%q", arg))
		}

		if seen&def.bit != 0 {
			return Flags{}, usageError(errors.Wrapf(ErrDuplicateOption, "%s", def.name))
		}

		seen |= def.bit

		if def.deprecated {
			flags.Deprecated = append(flags.Deprecated, arg)
		}

		var value *string

		if def.takesValue {
			if i+1 >= len(args) || args[i+1] == "" {
				return Flags{}, usageError(errors.Wrapf(ErrMissingValue, "%s", arg))
			}

			i++

			value = pointer.To(args[i])
		}

		switch def.bit {
		case bitHelp:
			return Flags{Help: true}, nil
		case bitPretend:
			flags.Pretend = true
		case bitSkip:
			flags.Skip = true
		case bitNoLog:
			flags.NoLog = true
		case bitDisk:
			flags.Disk = value
		case bitLevel:
			flags.Level = value
		case bitLabel:
			flags.Label = value
		case bitModel:
			flags.Model = value
		case bitSerial:
			flags.Serial = value
		}
	}

	return flags, nil
}

func usageError(err error) error {
	return failure.Mark(errors.WithHint(err, "run with --help to see the supported options"), failure.KindUsage)
}

// Usage prints the help text.
func Usage(w io.Writer, name string) {
	fmt.Fprintf(w, `Usage: %s [options]

Securely erase a disk with diskutil secureErase.
Options not given on the command line are asked for interactively.

Options:
  -h,  --help            print this help and exit
  -p,  --pretend         simulate the erase, no data is changed
  -s,  --skip            skip the confirmation (deprecated alias: -o)
  -nl, --nolog           do not write the log file
  -d,  --disk <device>   disk to erase, e.g. /dev/disk4
  -lv, --level <0-4>     erase level
  -la, --label <text>    label shown in the summary and used in the log file name
  -m,  --model <text>    disk model, overrides detection
  -sn, --serial <text>   disk serial number, overrides detection

Erase levels:
`, name)

	printLevels(w)
}

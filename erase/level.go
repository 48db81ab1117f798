// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package erase

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/siderolabs/diskerase/internal/failure"
)

// Level selects the overwrite pattern of diskutil secureErase.
type Level int

// Erase levels.
const (
	LevelZeros Level = iota
	LevelRandom
	LevelDoD
	LevelGutmann
	LevelDoE
)

// ErrInvalidLevel is returned for levels outside [0,4].
var ErrInvalidLevel = errors.New("invalid erase level")

var levelDescriptions = [...]string{
	LevelZeros:   "Single-pass zeros fill erase",
	LevelRandom:  "Single-pass random-numbers fill erase",
	LevelDoD:     "Seven-pass secure erase (DoD 5220.22-M)",
	LevelGutmann: "Gutmann algorithm 35-pass secure erase",
	LevelDoE:     "Three-pass secure erase (DoE)",
}

// Levels returns all valid levels in ascending order.
func Levels() []Level {
	return []Level{LevelZeros, LevelRandom, LevelDoD, LevelGutmann, LevelDoE}
}

// ParseLevel converts the string representation into a Level.
func ParseLevel(s string) (Level, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, invalidLevel(s)
	}

	l := Level(n)
	if !l.Valid() {
		return 0, invalidLevel(s)
	}

	return l, nil
}

func invalidLevel(s string) error {
	return failure.Mark(
		errors.WithHint(
			errors.Wrapf(ErrInvalidLevel, "%q", s),
			"the erase level must be an integer from 0 to 4",
		),
		failure.KindValidation,
	)
}

// Valid is true for levels 0 through 4.
func (l Level) Valid() bool {
	return l >= LevelZeros && l <= LevelDoE
}

// Description returns the fixed human-readable description of the level.
func (l Level) Description() string {
	if !l.Valid() {
		return ""
	}

	return levelDescriptions[l]
}

// String returns the level as passed to diskutil.
func (l Level) String() string {
	return strconv.Itoa(int(l))
}

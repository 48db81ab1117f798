// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package auditlog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// strokes are letters without a decomposed form.
var strokes = map[rune]rune{
	'ł': 'l', 'Ł': 'L',
	'đ': 'd', 'Đ': 'D',
	'ø': 'o', 'Ø': 'O',
}

func asciiFold() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(func(r rune) rune {
			if repl, ok := strokes[r]; ok {
				return repl
			}

			return r
		}),
		norm.NFC,
	)
}

// sanitize makes s safe as a part of a file name.
//
// Diacritics are dropped; runs of anything but [A-Za-z0-9.-] collapse into a single '-'.
func sanitize(s string) string {
	folded, _, err := transform.String(asciiFold(), s)
	if err != nil {
		folded = s
	}

	var sb strings.Builder

	dash := false

	for _, r := range folded {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.'):
			sb.WriteRune(r)

			dash = false
		case !dash:
			sb.WriteRune('-')

			dash = true
		}
	}

	return strings.Trim(sb.String(), "-.")
}

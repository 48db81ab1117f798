// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package confirm

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/siderolabs/diskerase/erase"
)

const rule = "=================================================="

// Render writes the summary of the request.
//
// The output only depends on the request. Styling is dropped when w is not a terminal.
func Render(w io.Writer, req erase.Request) {
	r := lipgloss.NewRenderer(w)

	heading := r.NewStyle().Bold(true)
	warning := r.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	notice := r.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))

	var sb strings.Builder

	fmt.Fprintln(&sb, rule)
	fmt.Fprintln(&sb, heading.Render("SECURE ERASE SUMMARY"))
	fmt.Fprintln(&sb, rule)

	if req.Pretend {
		fmt.Fprintln(&sb, notice.Render("PRETEND MODE: this is a simulation, no data will be changed."))
	}

	field := func(name, value string) {
		fmt.Fprintf(&sb, "%-13s %s\n", name+":", value)
	}

	field("Device", req.Device)
	field("Model", req.Model())

	if req.HasSerial() {
		field("Serial", req.Serial())
	}

	if label := req.LabelText(); label != "" {
		field("Label", label)
	}

	if connection := req.Disk.Connection(); connection != "" {
		field("Connection", connection)
	}

	field("Size", req.Disk.HumanSize())
	field("Erase level", req.Level.String()+" - "+req.Level.Description())

	fmt.Fprintln(&sb)
	fmt.Fprintln(&sb, heading.Render("Current partition layout:"))

	if layout := strings.TrimRight(req.Disk.Layout, "\n"); layout != "" {
		fmt.Fprintln(&sb, layout)
	} else {
		fmt.Fprintln(&sb, "(unavailable)")
	}

	fmt.Fprintln(&sb, rule)

	if !req.Pretend {
		fmt.Fprintln(&sb, warning.Render("WARNING: all data on "+req.Device+" will be irreversibly destroyed."))
	}

	io.WriteString(w, sb.String()) //nolint:errcheck
}

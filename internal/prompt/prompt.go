// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package prompt reads operator answers line by line.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/term"

	"github.com/siderolabs/diskerase/internal/failure"
)

// Prompt errors.
var (
	ErrNoInput     = errors.New("no input")
	ErrInterrupted = errors.New("interrupted while waiting for input")
)

// Prompter asks questions and reads single-line answers.
//
// All questions of a run must go through one Prompter, as it buffers input.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool

	// pending is the read left in flight by an interrupted Ask.
	pending chan answer
}

type answer struct {
	line string
	err  error
}

// New creates a new Prompter.
func New(in io.Reader, out io.Writer) *Prompter {
	interactive := false

	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}

	return &Prompter{
		in:          bufio.NewReader(in),
		out:         out,
		interactive: interactive,
	}
}

// Out is where questions are written.
func (p *Prompter) Out() io.Writer {
	return p.out
}

// Ask prints the question and returns the trimmed answer.
//
// Cancelling ctx aborts the wait with ErrInterrupted marked as an operator abort.
func (p *Prompter) Ask(ctx context.Context, question string) (string, error) {
	fmt.Fprintf(p.out, "%s ", question)

	if p.pending == nil {
		ch := make(chan answer, 1)

		go func() {
			line, err := p.in.ReadString('\n')

			ch <- answer{line: line, err: err}
		}()

		p.pending = ch
	}

	var a answer

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)

		return "", failure.Mark(errors.Wrap(ErrInterrupted, ctx.Err().Error()), failure.KindAborted)
	case a = <-p.pending:
		p.pending = nil
	}

	if a.err != nil {
		if !errors.Is(a.err, io.EOF) {
			return "", errors.Wrap(a.err, "failed to read answer")
		}

		if a.line == "" {
			fmt.Fprintln(p.out)

			err := errors.Wrapf(ErrNoInput, "%q", strings.TrimSpace(question))

			if !p.interactive {
				err = errors.WithHint(err, "pass the value as a flag when input is not a terminal")
			}

			return "", err
		}
	}

	return strings.TrimSpace(a.line), nil
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package confirm shows the erase summary and asks the operator to confirm it.
package confirm

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/siderolabs/diskerase/erase"
	"github.com/siderolabs/diskerase/internal/failure"
	"github.com/siderolabs/diskerase/internal/prompt"
)

// Token is the only answer which confirms the erase.
const Token = "tak"

// ErrRejected is returned when the operator did not confirm.
var ErrRejected = errors.New("no erase performed")

// State of the gate.
type State int

// Gate states.
const (
	StateRendering State = iota
	StateAwaitingInput
	StateConfirmed
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateRendering:
		return "rendering"
	case StateAwaitingInput:
		return "awaiting input"
	case StateConfirmed:
		return "confirmed"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Decision of the operator.
type Decision int

// Decisions.
const (
	Rejected Decision = iota
	Confirmed
)

// Err returns ErrRejected marked as an operator abort, or nil when confirmed.
func (d Decision) Err() error {
	if d == Confirmed {
		return nil
	}

	return failure.Mark(errors.WithHint(ErrRejected, "run the command again to start over"), failure.KindAborted)
}

// Option configures the Gate.
type Option func(*Gate)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// Gate renders the summary and waits for the confirmation token.
//
// A Gate is single-shot: a wrong answer is final.
type Gate struct {
	prompter *prompt.Prompter
	logger   *zap.Logger
	state    State
}

// New creates a new Gate.
func New(prompter *prompt.Prompter, opts ...Option) *Gate {
	g := &Gate{
		prompter: prompter,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// State returns the current state.
func (g *Gate) State() State {
	return g.state
}

// Confirm prints the summary and returns the operator's decision.
//
// With SkipConfirmation set the request is confirmed without asking.
// End of input counts as a rejection; cancelling ctx returns the abort error.
func (g *Gate) Confirm(ctx context.Context, req erase.Request) (Decision, error) {
	if g.state != StateRendering {
		return Rejected, errors.Newf("confirmation already %s", g.state)
	}

	Render(g.prompter.Out(), req)

	if req.SkipConfirmation {
		g.logger.Info("confirmation skipped", zap.String("device", req.Device))

		return g.decide(Confirmed), nil
	}

	g.transition(StateAwaitingInput)

	answer, err := g.prompter.Ask(ctx, `Type "` + Token + `" to erase ` + req.Device + `, anything else aborts:`)
	if err != nil {
		if errors.Is(err, prompt.ErrNoInput) {
			return g.decide(Rejected), nil
		}

		g.transition(StateRejected)

		return Rejected, err
	}

	if answer == Token {
		return g.decide(Confirmed), nil
	}

	return g.decide(Rejected), nil
}

func (g *Gate) decide(d Decision) Decision {
	if d == Confirmed {
		g.transition(StateConfirmed)
	} else {
		g.transition(StateRejected)
	}

	return d
}

func (g *Gate) transition(to State) {
	g.logger.Debug("confirmation state", zap.Stringer("from", g.state), zap.Stringer("to", to))

	g.state = to
}

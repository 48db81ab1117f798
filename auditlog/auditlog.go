// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package auditlog writes the per-run plain-text erase log.
package auditlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siderolabs/diskerase/erase"
)

const (
	timestampFormat = "2006-01-02 15:04:05"
	fileTimeFormat  = "2006-01-02_15-04-05"
)

// Recorder records an erase run.
type Recorder interface {
	// Start writes the disk metadata and the start line.
	Start(req erase.Request, at time.Time) error
	// Finish writes the completion or failure line and the elapsed time.
	Finish(outcome erase.Outcome) error
}

// Nop records nothing.
type Nop struct{}

// Start implements Recorder.
func (Nop) Start(erase.Request, time.Time) error { return nil }

// Finish implements Recorder.
func (Nop) Finish(erase.Outcome) error { return nil }

// Option configures File.
type Option func(*File)

// WithOwner sets the owner of the log directory and file.
func WithOwner(owner Owner) Option {
	return func(f *File) {
		f.owner = &owner
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *File) {
		f.logger = logger
	}
}

// WithRunID sets the run identifier written to the log.
func WithRunID(id uuid.UUID) Option {
	return func(f *File) {
		f.runID = id
	}
}

// File records to a new file in a directory.
type File struct {
	owner  *Owner
	logger *zap.Logger
	f      *os.File
	dir    string
	path   string
	runID  uuid.UUID
}

// New returns the recorder for the request: Nop for pretend or no-log runs.
func New(dir string, req erase.Request, opts ...Option) Recorder {
	if req.Pretend || req.NoLog {
		return Nop{}
	}

	return NewFile(dir, opts...)
}

// NewFile creates a File recorder writing into dir.
func NewFile(dir string, opts ...Option) *File {
	f := &File{
		dir:    dir,
		logger: zap.NewNop(),
		runID:  uuid.New(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Path of the log file, empty before Start.
func (f *File) Path() string {
	return f.path
}

// FileName builds the log file name from the disk facts, the label and the start time.
//
// The serial is left out when unknown or empty after sanitizing.
func FileName(req erase.Request, at time.Time) string {
	model := sanitize(req.Model())
	if model == "" {
		model = erase.None
	}

	parts := []string{model}

	if serial := sanitize(req.Serial()); req.HasSerial() && serial != "" {
		parts = append(parts, serial)
	}

	if label := sanitize(req.LabelText()); label != "" {
		parts = append(parts, label)
	}

	parts = append(parts, at.Format(fileTimeFormat))

	return strings.Join(parts, "_") + ".log"
}

// Start implements Recorder.
func (f *File) Start(req erase.Request, at time.Time) error {
	if f.f != nil {
		return errors.New("audit log already started")
	}

	if err := f.prepareDir(); err != nil {
		return err
	}

	f.path = filepath.Join(f.dir, FileName(req, at))

	_, statErr := os.Stat(f.path)

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to open audit log")
	}

	f.f = file

	if err = f.writeHeader(req, at); err != nil {
		f.f.Close() //nolint:errcheck

		f.f = nil

		if os.IsNotExist(statErr) {
			os.Remove(f.path) //nolint:errcheck
		}

		return err
	}

	f.logger.Info("audit log started", zap.String("path", f.path))

	return nil
}

func (f *File) writeHeader(req erase.Request, at time.Time) error {
	if f.owner != nil {
		if err := f.owner.chown(f.path); err != nil {
			return err
		}
	}

	lines := []string{
		line("Run ID", f.runID.String()),
		line("Device", req.Device),
		line("Model", req.Model()),
		line("Serial", req.Serial()),
	}

	if connection := req.Disk.Connection(); connection != "" {
		lines = append(lines, line("Connection", connection))
	}

	lines = append(lines, line("Size", req.Disk.HumanSize()))

	if label := req.LabelText(); label != "" {
		lines = append(lines, line("Label", label))
	}

	lines = append(lines,
		line("Erase level", req.Level.String()+" - "+req.Level.Description()),
		line("Erase started", at.Format(timestampFormat)),
	)

	if err := f.write(lines...); err != nil {
		return err
	}

	if err := f.f.Sync(); err != nil {
		return errors.Wrap(err, "failed to sync audit log")
	}

	return nil
}

// Finish implements Recorder.
func (f *File) Finish(outcome erase.Outcome) error {
	if f.f == nil {
		return errors.New("audit log not started")
	}

	var status string

	if outcome.Succeeded() {
		status = line("Erase completed", outcome.Finished.Format(timestampFormat))
	} else {
		status = line("Erase FAILED", fmt.Sprintf("%s (%s: %s)", outcome.Finished.Format(timestampFormat), outcome.Step, outcome.Err))
	}

	err := f.write(status, line("Elapsed time", erase.FormatElapsed(outcome.Duration())))

	if closeErr := f.f.Close(); closeErr != nil && err == nil {
		err = errors.Wrap(closeErr, "failed to close audit log")
	}

	f.f = nil

	return err
}

func (f *File) prepareDir() error {
	_, statErr := os.Stat(f.dir)

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create log directory")
	}

	if f.owner != nil && os.IsNotExist(statErr) {
		return f.owner.chown(f.dir)
	}

	return nil
}

func (f *File) write(lines ...string) error {
	for _, l := range lines {
		if _, err := f.f.WriteString(l + "\n"); err != nil {
			return errors.Wrap(err, "failed to write audit log")
		}
	}

	return nil
}

func line(name, value string) string {
	return fmt.Sprintf("%-16s %s", name+":", value)
}

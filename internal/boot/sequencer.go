// Package boot implements the startup state machine: sensor probe,
// storage mount, media presence check, counter load, each stage with its
// own terminal failure state and indicator signature.
package boot

import (
	"log/slog"

	"github.com/obscuracam/obscurad/internal/indicator"
)

// State is the initialization state of the appliance.
type State int

const (
	// Starting is the initial state before any stage has run.
	Starting State = iota
	// CameraFailed is terminal: the sensor did not initialize.
	CameraFailed
	// StorageFailed is terminal: the media root could not be mounted.
	StorageFailed
	// StorageMissing is terminal: the media is not present/writable.
	StorageMissing
	// CounterReady means the sequence counter has been loaded.
	CounterReady
	// Ready enables the control plane to begin accepting requests.
	Ready
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case CameraFailed:
		return "camera_failed"
	case StorageFailed:
		return "storage_failed"
	case StorageMissing:
		return "storage_missing"
	case CounterReady:
		return "counter_ready"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// Terminal reports whether the state is an unrecoverable failure. A
// terminal state offers no recovery path other than a physical reset.
func (s State) Terminal() bool {
	switch s {
	case CameraFailed, StorageFailed, StorageMissing:
		return true
	}
	return false
}

// Pulses returns the indicator signature for the state, or 0 when the
// state has none.
func (s State) Pulses() int {
	switch s {
	case CameraFailed:
		return indicator.PulsesCameraFail
	case StorageFailed:
		return indicator.PulsesMountFail
	case StorageMissing:
		return indicator.PulsesCardMissing
	case Ready:
		return indicator.PulsesReady
	}
	return 0
}

// Stages are the ordered startup steps. Each is attempted once, in
// order, and a failure stops the sequence at the matching terminal
// state; later stages are never attempted.
type Stages struct {
	ProbeSensor  func() error
	MountStorage func() error
	CheckMedia   func() error
	LoadCounter  func() error
}

// Sequencer drives the startup stages exactly once. The surrounding
// driver loop is responsible for signaling a terminal state's pulse
// pattern; the machine itself never loops.
type Sequencer struct {
	stages Stages
	logger *slog.Logger
	state  State
	ran    bool
}

// NewSequencer creates a sequencer in the Starting state.
func NewSequencer(stages Stages, logger *slog.Logger) *Sequencer {
	return &Sequencer{stages: stages, logger: logger, state: Starting}
}

// State returns the current initialization state.
func (s *Sequencer) State() State {
	return s.state
}

// Run executes the startup sequence once and returns the resulting
// state: Ready, or the terminal state of the first failed stage.
// Calling Run again returns the recorded state without re-executing.
func (s *Sequencer) Run() State {
	if s.ran {
		return s.state
	}
	s.ran = true

	if err := s.stages.ProbeSensor(); err != nil {
		s.logger.Error("boot: sensor init failed", slog.String("error", err.Error()))
		s.state = CameraFailed
		return s.state
	}
	s.logger.Debug("boot: sensor ready")

	if err := s.stages.MountStorage(); err != nil {
		s.logger.Error("boot: storage mount failed", slog.String("error", err.Error()))
		s.state = StorageFailed
		return s.state
	}
	s.logger.Debug("boot: storage mounted")

	if err := s.stages.CheckMedia(); err != nil {
		s.logger.Error("boot: media presence check failed", slog.String("error", err.Error()))
		s.state = StorageMissing
		return s.state
	}
	s.logger.Debug("boot: media present")

	if err := s.stages.LoadCounter(); err != nil {
		// Counter load reads the same media that just passed the
		// presence check, so a failure here is a storage fault.
		s.logger.Error("boot: counter load failed", slog.String("error", err.Error()))
		s.state = StorageFailed
		return s.state
	}
	s.state = CounterReady
	s.logger.Debug("boot: counter loaded")

	s.state = Ready
	s.logger.Info("boot: initialization complete")
	return s.state
}

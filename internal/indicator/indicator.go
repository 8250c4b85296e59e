// Package indicator abstracts the appliance's flash-pulse acknowledgment
// collaborator. The physical LED primitive lives outside the core; the
// default implementation just logs pulses.
package indicator

import "log/slog"

// Pulse counts, one signature per condition, so an operator without a
// display can tell which stage failed.
const (
	PulsesSnap        = 1 // shutter acknowledgment
	PulsesCameraFail  = 2 // sensor init failed
	PulsesMountFail   = 3 // storage mount failed
	PulsesCardMissing = 4 // no media present
	PulsesReady       = 5 // initialization complete
)

// Indicator signals a pulse group to the operator.
type Indicator interface {
	Flash(pulses int)
}

// Log is the default Indicator, reporting pulses through slog.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a logging indicator.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Flash logs the pulse group.
func (l *Log) Flash(pulses int) {
	l.logger.Info("indicator flash", slog.Int("pulses", pulses))
}

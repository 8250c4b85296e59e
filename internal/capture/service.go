// Package capture orchestrates the capture-and-persist pipeline: one
// frame from the sensor, a durable sequence number, one image file on
// the media.
package capture

import (
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/obscuracam/obscurad/internal/apperr"
	"github.com/obscuracam/obscurad/internal/camera"
	"github.com/obscuracam/obscurad/internal/counter"
	"github.com/obscuracam/obscurad/internal/index"
	"github.com/obscuracam/obscurad/internal/indicator"
	"github.com/obscuracam/obscurad/internal/store"
)

// Image describes one stored capture.
type Image struct {
	Seq  uint16
	Path string
	Size int
}

// EventFunc publishes a capture event to interested listeners.
type EventFunc func(kind, path string)

// Service runs the capture pipeline. One instance is constructed at
// startup and shared by reference; the request loop is its only caller.
type Service struct {
	sensor   camera.Sensor
	counter  *counter.Persistent
	media    *store.Media
	ind      indicator.Indicator
	journal  *index.DB // optional
	events   EventFunc // optional
	logger   *slog.Logger
	photoDir string
	prefix   string
}

// NewService wires the capture pipeline. journal and events may be nil.
func NewService(sensor camera.Sensor, ctr *counter.Persistent, media *store.Media, ind indicator.Indicator, journal *index.DB, events EventFunc, photoDir, prefix string, logger *slog.Logger) *Service {
	return &Service{
		sensor:   sensor,
		counter:  ctr,
		media:    media,
		ind:      ind,
		journal:  journal,
		events:   events,
		logger:   logger,
		photoDir: photoDir,
		prefix:   prefix,
	}
}

// Capture acquires one frame, names it with the next sequence number,
// and persists it to the media.
//
// The frame is released back to the sensor subsystem on every exit path.
// The sequence number advances in memory before the write, so a storage
// failure permanently skips that number for this boot; the NVM commit
// happens only after the image bytes are written.
func (s *Service) Capture() (*Image, error) {
	frame, err := s.sensor.Acquire()
	if err != nil {
		return nil, fmt.Errorf("capture: %w: %v", apperr.ErrSensorUnavailable, err)
	}
	defer frame.Release()

	seq := s.counter.Advance()
	imgPath := path.Join(s.photoDir, fmt.Sprintf("%s%d.jpg", s.prefix, seq))
	s.logger.Debug("capture: naming image", slog.String("path", imgPath), slog.Int("seq", int(seq)))

	w, err := s.media.CreateNew(imgPath)
	if err != nil {
		return nil, fmt.Errorf("capture: %w: %v", apperr.ErrStorageUnavailable, err)
	}

	n, err := w.Write(frame.Bytes())
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("capture: %w: %v", apperr.ErrStorageUnavailable, err)
	}
	if n != frame.Len() {
		// Permissive: a short write is logged, not failed.
		s.logger.Warn("capture: short write",
			slog.String("path", imgPath),
			slog.Int("expected", frame.Len()),
			slog.Int("written", n))
	}

	if err := s.counter.Commit(); err != nil {
		s.logger.Warn("capture: counter commit failed", slog.String("error", err.Error()))
	}

	if err := w.Close(); err != nil {
		s.logger.Warn("capture: close failed", slog.String("path", imgPath), slog.String("error", err.Error()))
	}

	s.ind.Flash(indicator.PulsesSnap)
	s.logger.Info("capture: image stored",
		slog.String("path", imgPath),
		slog.Int("seq", int(seq)),
		slog.Int("bytes", n))

	if s.journal != nil {
		row := index.CaptureRow{Path: imgPath, Seq: seq, Bytes: int64(n), TakenAt: time.Now()}
		if err := s.journal.Upsert(row); err != nil {
			s.logger.Warn("capture: journal record failed", slog.String("error", err.Error()))
		}
	}
	if s.events != nil {
		s.events("capture.stored", imgPath)
	}

	return &Image{Seq: seq, Path: imgPath, Size: n}, nil
}

// Package testutil provides shared test helpers: temp media roots, temp
// journal databases, and scripted sensor/indicator collaborators.
package testutil

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/obscuracam/obscurad/internal/camera"
	"github.com/obscuracam/obscurad/internal/index"
	"github.com/obscuracam/obscurad/internal/store"
)

// TestMedia creates a temporary media root with a store rooted at it.
func TestMedia(t *testing.T) (string, *store.Media) {
	t.Helper()
	dir := t.TempDir()
	media, err := store.NewMedia(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, media
}

// TestJournal creates a temporary capture journal that is cleaned up
// with the test.
func TestJournal(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// StubSensor is a scripted camera.Sensor that counts acquisitions and
// releases.
type StubSensor struct {
	Data     []byte
	Fail     bool
	Acquired int
	Released int
}

// Probe reports the scripted availability.
func (s *StubSensor) Probe() error {
	if s.Fail {
		return errors.New("stub sensor down")
	}
	return nil
}

// Acquire hands out a frame backed by the scripted payload.
func (s *StubSensor) Acquire() (*camera.Frame, error) {
	if s.Fail {
		return nil, errors.New("stub sensor down")
	}
	s.Acquired++
	return camera.NewFrame(s.Data, func() { s.Released++ }), nil
}

// StubIndicator records every flash.
type StubIndicator struct {
	Pulses []int
}

// Flash records the pulse group.
func (s *StubIndicator) Flash(pulses int) {
	s.Pulses = append(s.Pulses, pulses)
}

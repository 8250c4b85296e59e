package capture

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/obscuracam/obscurad/internal/apperr"
	"github.com/obscuracam/obscurad/internal/camera"
	"github.com/obscuracam/obscurad/internal/counter"
	"github.com/obscuracam/obscurad/internal/store"
)

type fakeSensor struct {
	data        []byte
	failAcquire bool
	acquired    int
	released    int
}

func (f *fakeSensor) Probe() error { return nil }

func (f *fakeSensor) Acquire() (*camera.Frame, error) {
	if f.failAcquire {
		return nil, errors.New("buffer pool empty")
	}
	f.acquired++
	return camera.NewFrame(f.data, func() { f.released++ }), nil
}

type fakeIndicator struct {
	flashes []int
}

func (f *fakeIndicator) Flash(pulses int) {
	f.flashes = append(f.flashes, pulses)
}

type env struct {
	sensor  *fakeSensor
	ind     *fakeIndicator
	media   *store.Media
	counter *counter.Persistent
	svc     *Service
	nvm     string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	media, err := store.NewMedia(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	nvm := filepath.Join(t.TempDir(), "nvm.bin")
	ctr, err := counter.Open(nvm, 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ctr.Close() })

	sensor := &fakeSensor{data: []byte("jpeg payload")}
	ind := &fakeIndicator{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(sensor, ctr, media, ind, nil, nil, "/photos", "Image", logger)
	return &env{sensor: sensor, ind: ind, media: media, counter: ctr, svc: svc, nvm: nvm}
}

func TestCaptureStoresImage(t *testing.T) {
	e := newEnv(t)

	img, err := e.svc.Capture()
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if img.Seq != 1 {
		t.Errorf("Seq = %d, want 1", img.Seq)
	}
	if img.Path != "/photos/Image1.jpg" {
		t.Errorf("Path = %q", img.Path)
	}
	got, err := e.media.Read(img.Path)
	if err != nil {
		t.Fatalf("Read stored image: %v", err)
	}
	if !bytes.Equal(got, e.sensor.data) {
		t.Errorf("stored bytes = %q, want %q", got, e.sensor.data)
	}
	if len(e.ind.flashes) != 1 || e.ind.flashes[0] != 1 {
		t.Errorf("flashes = %v, want one single-pulse flash", e.ind.flashes)
	}
}

func TestSequenceIsMonotonicAcrossPowerCycle(t *testing.T) {
	e := newEnv(t)

	var last uint16
	for i := 0; i < 3; i++ {
		img, err := e.svc.Capture()
		if err != nil {
			t.Fatalf("Capture %d: %v", i, err)
		}
		if img.Seq <= last && i > 0 {
			t.Fatalf("Seq %d not greater than previous %d", img.Seq, last)
		}
		last = img.Seq
	}

	// Power cycle: reopen the counter from NVM, rebuild the service.
	e.counter.Close()
	ctr, err := counter.Open(e.nvm, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer ctr.Close()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(e.sensor, ctr, e.media, e.ind, nil, nil, "/photos", "Image", logger)

	img, err := svc.Capture()
	if err != nil {
		t.Fatalf("Capture after power cycle: %v", err)
	}
	if img.Seq != last+1 {
		t.Errorf("Seq after power cycle = %d, want %d", img.Seq, last+1)
	}
}

func TestSensorFailure(t *testing.T) {
	e := newEnv(t)
	e.sensor.failAcquire = true

	_, err := e.svc.Capture()
	if !errors.Is(err, apperr.ErrSensorUnavailable) {
		t.Fatalf("Capture = %v, want ErrSensorUnavailable", err)
	}
	// No further action: counter untouched, nothing stored, no flash.
	if e.counter.Value() != 0 {
		t.Errorf("counter advanced to %d on sensor failure", e.counter.Value())
	}
	if len(e.ind.flashes) != 0 {
		t.Errorf("indicator flashed on sensor failure: %v", e.ind.flashes)
	}
}

func TestStorageFailureSkipsSequenceNumber(t *testing.T) {
	e := newEnv(t)

	// Occupy the next target so the exclusive create fails.
	if err := e.media.Write("/photos/Image1.jpg", strings.NewReader("squatter")); err != nil {
		t.Fatal(err)
	}

	_, err := e.svc.Capture()
	if !errors.Is(err, apperr.ErrStorageUnavailable) {
		t.Fatalf("Capture = %v, want ErrStorageUnavailable", err)
	}

	// The failed attempt's number is permanently skipped: the next
	// successful capture lands exactly two past the last success (zero).
	img, err := e.svc.Capture()
	if err != nil {
		t.Fatalf("Capture after failure: %v", err)
	}
	if img.Seq != 2 {
		t.Errorf("Seq = %d, want 2 (number 1 skipped)", img.Seq)
	}
}

func TestFrameAlwaysReleased(t *testing.T) {
	e := newEnv(t)

	// Success path.
	if _, err := e.svc.Capture(); err != nil {
		t.Fatal(err)
	}
	// Storage failure path.
	if err := e.media.Write("/photos/Image2.jpg", strings.NewReader("squatter")); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.Capture(); !errors.Is(err, apperr.ErrStorageUnavailable) {
		t.Fatalf("expected storage failure, got %v", err)
	}
	// Another success.
	if _, err := e.svc.Capture(); err != nil {
		t.Fatal(err)
	}

	if e.sensor.acquired != e.sensor.released {
		t.Errorf("acquired %d frames, released %d", e.sensor.acquired, e.sensor.released)
	}
	if e.sensor.acquired != 3 {
		t.Errorf("acquired = %d, want 3", e.sensor.acquired)
	}
}

func TestDoubleReleaseIsNoOp(t *testing.T) {
	s := &fakeSensor{data: []byte("x")}
	frame, err := s.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	frame.Release()
	frame.Release()
	if s.released != 1 {
		t.Errorf("released = %d, want exactly 1", s.released)
	}
	if frame.Bytes() != nil {
		t.Error("Bytes after release should be nil")
	}
}

func TestCounterCommittedOnlyAfterWrite(t *testing.T) {
	e := newEnv(t)

	// A storage failure advances the in-memory counter but must not
	// commit it to NVM.
	if err := e.media.Write("/photos/Image1.jpg", strings.NewReader("squatter")); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.Capture(); !errors.Is(err, apperr.ErrStorageUnavailable) {
		t.Fatal("expected storage failure")
	}

	e.counter.Close()
	ctr, err := counter.Open(e.nvm, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer ctr.Close()
	if ctr.Value() != 0 {
		t.Errorf("NVM value after failed capture = %d, want 0 (not committed)", ctr.Value())
	}
}

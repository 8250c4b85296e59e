package index

import (
	"errors"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/obscuracam/obscurad/internal/apperr"
	"github.com/obscuracam/obscurad/internal/store"
)

// ParseSeq extracts the sequence number from an image file name of the
// form <prefix><digits>.jpg. The value shares the counter's uint16 range.
func ParseSeq(name, prefix string) (uint16, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".jpg") {
		return 0, false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".jpg")
	n, err := strconv.ParseUint(digits, 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(n), true
}

// Sync reconciles the journal with the photo directory on the media:
//   - images on disk that are missing from the journal are recorded
//   - journal rows whose files are gone are removed
//
// A missing photo directory is not an error; it simply means nothing has
// been captured yet.
func Sync(db *DB, media *store.Media, photoDir, prefix string, logger *slog.Logger) error {
	entries, err := media.List(photoDir)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			entries = nil
		} else {
			return err
		}
	}

	journaled, err := db.AllPaths()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		seq, ok := ParseSeq(e.Name, prefix)
		if !ok {
			continue
		}
		p := path.Join(photoDir, e.Name)
		disk[p] = struct{}{}
		if _, known := journaled[p]; known {
			continue
		}
		row := CaptureRow{Path: p, Seq: seq, Bytes: e.Size, TakenAt: e.ModTime}
		if err := db.Upsert(row); err != nil {
			logger.Warn("sync: record failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: recorded", slog.String("path", p))
		}
	}

	for p := range journaled {
		if _, ok := disk[p]; !ok {
			if err := db.Delete(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/obscuracam/obscurad/internal/store"
)

// EventCallback is called after a watcher-driven journal change.
// kind is one of "created" or "deleted".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher over the media root and keeps the
// journal consistent with images added or removed through the
// file-management surface, until ctx is cancelled. It calls cb (if
// non-nil) after each successful journal mutation.
//
// Directories created at runtime (including the photo directory itself
// on the first capture) are added to the watch list automatically.
// Rename events schedule a short reconciliation pass via Sync.
func Watch(ctx context.Context, db *DB, media *store.Media, photoDir, prefix string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, media.Root()); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", media.Root()))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if err := Sync(db, media, photoDir, prefix, logger); err != nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					// Images may already be inside (e.g. an uploaded dir).
					scheduleReconcile()
					continue
				}
			}

			rel, inPhotos := photoRel(media.Root(), photoDir, absPath)
			if !inPhotos {
				continue
			}
			seq, isImage := ParseSeq(path.Base(rel), prefix)
			if !isImage {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				info, statErr := os.Stat(absPath)
				if statErr != nil {
					continue
				}
				row := CaptureRow{Path: rel, Seq: seq, Bytes: info.Size(), TakenAt: info.ModTime()}
				if idxErr := db.Upsert(row); idxErr != nil {
					logger.Warn("watcher: record failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				logger.Debug("watcher: recorded", slog.String("path", rel))
				if cb != nil {
					cb("created", rel)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.Delete(rel); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				if cb != nil {
					cb("deleted", rel)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the old path only; the new
				// path arrives as a separate Create. Drop the old row and
				// reconcile for stragglers.
				if delErr := db.Delete(rel); delErr == nil {
					logger.Debug("watcher: rename old deleted", slog.String("path", rel))
					if cb != nil {
						cb("deleted", rel)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// photoRel converts an absolute fsnotify path into the request-style
// path used by the journal ("/photos/Image1.jpg"), reporting whether it
// falls under the photo directory.
func photoRel(root, photoDir, abs string) (string, bool) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", false
	}
	p := "/" + filepath.ToSlash(rel)
	prefix := strings.TrimSuffix(photoDir, "/") + "/"
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}
	return p, true
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

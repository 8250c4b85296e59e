package index

import (
	"fmt"
	"time"
)

// CaptureRow is one journal entry.
type CaptureRow struct {
	Path    string    `json:"path"`
	Seq     uint16    `json:"seq"`
	Bytes   int64     `json:"bytes"`
	TakenAt time.Time `json:"taken_at"`
}

// Upsert inserts or replaces a journal entry.
func (db *DB) Upsert(row CaptureRow) error {
	_, err := db.conn.Exec(`
		INSERT INTO captures (path, seq, bytes, taken_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			seq      = excluded.seq,
			bytes    = excluded.bytes,
			taken_at = excluded.taken_at
	`, row.Path, row.Seq, row.Bytes, row.TakenAt)
	if err != nil {
		return fmt.Errorf("index: upsert capture: %w", err)
	}
	return nil
}

// Delete removes the journal entry for a path. Missing rows are fine.
func (db *DB) Delete(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM captures WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete capture: %w", err)
	}
	return nil
}

// List returns journal entries, newest sequence first. limit <= 0 means
// no limit.
func (db *DB) List(limit int) ([]CaptureRow, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(`
		SELECT path, seq, bytes, taken_at FROM captures
		ORDER BY seq DESC, path DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("index: list captures: %w", err)
	}
	defer rows.Close()

	out := []CaptureRow{}
	for rows.Next() {
		var r CaptureRow
		if err := rows.Scan(&r.Path, &r.Seq, &r.Bytes, &r.TakenAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AllPaths returns every journaled path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM captures`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

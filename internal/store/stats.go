package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath      string            `json:"db_path"`
	DBSizeBytes int64             `json:"db_size_bytes"`
	Version     int64             `json:"version"`
	TotalKeys   int               `json:"total_keys"`
	Changes     int               `json:"changes"`
	Collections []CollectionStats `json:"collections"`
}

// CollectionStats holds per-collection counts. Keys outside any collection
// are reported under the empty name.
type CollectionStats struct {
	Collection string `json:"collection"`
	Keys       int    `json:"keys"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path}

	// DB file size
	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE name = 'version'`).Scan(&st.Version); err != nil {
		return st, err
	}
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv`).Scan(&st.TotalKeys)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM changes`).Scan(&st.Changes)

	cols, err := s.Collections(ctx)
	if err != nil {
		return st, err
	}
	st.Collections = cols
	return st, nil
}

// Collections returns key counts grouped by collection.
func (s *SQLiteStore) Collections(ctx context.Context) ([]CollectionStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, COUNT(*) AS cnt
		FROM kv GROUP BY collection ORDER BY cnt DESC, collection`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CollectionStats
	for rows.Next() {
		var c CollectionStats
		if err := rows.Scan(&c.Collection, &c.Keys); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

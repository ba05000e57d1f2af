package store

import (
	"context"
	"time"
)

// ChangeRecord is one row of the change log.
type ChangeRecord struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	Key       string    `json:"key"`
	Op        string    `json:"op"`
	CreatedAt time.Time `json:"created_at"`
}

// History returns the most recent change log entries, newest first.
func (s *SQLiteStore) History(ctx context.Context, limit int) ([]ChangeRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, version, key, op, created_at FROM changes
		 ORDER BY version DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChangeRecord
	for rows.Next() {
		var c ChangeRecord
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Version, &c.Key, &c.Op, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

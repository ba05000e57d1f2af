package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SearchParams holds parameters for searching stored values.
type SearchParams struct {
	Collection string
	Query      string
	Limit      int
}

// SearchResult is one key whose key or value matched a search.
type SearchResult struct {
	Key        string          `json:"key"`
	Collection string          `json:"collection,omitempty"`
	Version    int64           `json:"version"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Value      json.RawMessage `json:"value"`
}

// Search finds keys whose name or JSON value contains the query substring,
// most recently written first.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	query := "%" + p.Query + "%"
	where := []string{"(key LIKE ? OR value LIKE ?)"}
	args := []any{query, query}

	if p.Collection != "" {
		where = append(where, "collection = ?")
		args = append(args, p.Collection)
	}

	q := fmt.Sprintf(`
		SELECT key, collection, version, updated_at, value
		FROM kv
		WHERE %s
		ORDER BY version DESC, key
		LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var updatedAt, value string
		if err := rows.Scan(&r.Key, &r.Collection, &r.Version, &updatedAt, &value); err != nil {
			return nil, err
		}
		r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		r.Value = json.RawMessage(value)
		results = append(results, r)
	}
	return results, rows.Err()
}

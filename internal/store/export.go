package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// ExportAll returns every key and value, optionally filtered by key prefix.
func (s *SQLiteStore) ExportAll(ctx context.Context, prefix string) (map[string]json.RawMessage, error) {
	return readCollection(ctx, s.db, prefix)
}

// Import stores the values of an export in a single write.
func (s *SQLiteStore) Import(ctx context.Context, values map[string]json.RawMessage) (int, error) {
	if err := s.MultiSet(ctx, values); err != nil {
		return 0, fmt.Errorf("import: %w", err)
	}
	return len(values), nil
}

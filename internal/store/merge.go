package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// isNull reports whether raw is empty or the JSON literal null.
func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// mergeJSON merges patch into base. Objects merge recursively, a null field
// in patch deletes that field, everything else is replaced. A nil result
// means the key should be removed.
func mergeJSON(base, patch json.RawMessage) (json.RawMessage, error) {
	if isNull(patch) {
		return nil, nil
	}
	p, err := decodeValue(patch)
	if err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	var b any
	if !isNull(base) {
		if b, err = decodeValue(base); err != nil {
			return nil, fmt.Errorf("decode current value: %w", err)
		}
	}
	out, err := json.Marshal(mergeValue(b, p))
	if err != nil {
		return nil, fmt.Errorf("encode merged value: %w", err)
	}
	return out, nil
}

func mergeValue(base, patch any) any {
	pm, ok := patch.(map[string]any)
	if !ok {
		return patch
	}
	bm, _ := base.(map[string]any)
	out := make(map[string]any, len(bm)+len(pm))
	for k, v := range bm {
		out[k] = v
	}
	for k, v := range pm {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = mergeValue(out[k], v)
	}
	return out
}

package pipeline

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/rcliao/lhn/internal/lhn"
	"github.com/rcliao/lhn/internal/model"
	"github.com/rcliao/lhn/internal/store"
)

// Keys and Prefixes are what one pass reads from the store.
var (
	Keys     = model.SingleKeys
	Prefixes = model.Collections
)

// Decode turns a store snapshot into engine state. Records that cannot be
// decoded are logged and skipped; absent keys take their zero values.
func Decode(snap *store.Snapshot, log *slog.Logger) lhn.State {
	if log == nil {
		log = slog.Default()
	}
	st := lhn.State{
		Policies: make(map[model.ID]model.Policy),
	}

	reportKeys := make([]string, 0, len(snap.Collections[model.CollectionReport]))
	for k := range snap.Collections[model.CollectionReport] {
		reportKeys = append(reportKeys, k)
	}
	sort.Strings(reportKeys)
	for _, k := range reportKeys {
		var r model.Report
		if err := json.Unmarshal(snap.Collections[model.CollectionReport][k], &r); err != nil {
			log.Warn("report_decode_failed", "key", k, "error", err)
			continue
		}
		// The key is authoritative for identity.
		r.ID = model.ID(strings.TrimPrefix(k, model.CollectionReport))
		st.Reports = append(st.Reports, r)
	}

	for k, v := range snap.Collections[model.CollectionPolicy] {
		var p model.Policy
		if err := json.Unmarshal(v, &p); err != nil {
			log.Warn("policy_decode_failed", "key", k, "error", err)
			continue
		}
		p.ID = model.ID(strings.TrimPrefix(k, model.CollectionPolicy))
		st.Policies[p.ID] = p
	}

	decodeKey(snap, model.KeyBetas, &st.Betas, log)
	decodeKey(snap, model.KeyPriorityMode, &st.PriorityMode, log)
	decodeKey(snap, model.KeyCurrentlyViewedReportID, &st.ActiveReportID, log)
	decodeKey(snap, model.KeySession, &st.Session, log)
	decodeKey(snap, model.KeyPersonalDetails, &st.PersonalDetails, log)
	st.PriorityMode = st.PriorityMode.Normalize()

	return st
}

func decodeKey(snap *store.Snapshot, key string, dst any, log *slog.Logger) {
	v, ok := snap.Value(key)
	if !ok {
		return
	}
	if err := json.Unmarshal(v, dst); err != nil {
		log.Warn("value_decode_failed", "key", key, "error", err)
	}
}

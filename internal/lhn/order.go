package lhn

import (
	"slices"
	"sort"

	"github.com/rcliao/lhn/internal/model"
)

// Ordering is the sequence handed to the presentation layer.
type Ordering struct {
	ReportIDs []model.ID `json:"reportIDs"`
	// UnreadCount is the number of leading unread reports. In focus mode
	// every listed report is unread.
	UnreadCount int `json:"unreadCount"`
}

// Equal compares two orderings by content.
func (o Ordering) Equal(other Ordering) bool {
	return o.UnreadCount == other.UnreadCount && slices.Equal(o.ReportIDs, other.ReportIDs)
}

// Order sorts eligible reports for display. In focus mode read reports are
// dropped. Otherwise unread reports come first. Within a bucket reports are
// sorted by latest activity, newest first, then by ID.
func Order(eligible []model.Report, mode model.PriorityMode, unread map[model.ID]bool) Ordering {
	focus := mode.Normalize() == model.PriorityModeFocus

	rows := make([]model.Report, 0, len(eligible))
	for _, r := range eligible {
		if focus && !unread[r.ID] {
			continue
		}
		rows = append(rows, r)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !focus {
			ua, ub := unread[a.ID], unread[b.ID]
			if ua != ub {
				return ua
			}
		}
		if a.LastMessageTimestamp != b.LastMessageTimestamp {
			return a.LastMessageTimestamp > b.LastMessageTimestamp
		}
		if a.MaxSequenceNumber != b.MaxSequenceNumber {
			return a.MaxSequenceNumber > b.MaxSequenceNumber
		}
		return a.ID.Less(b.ID)
	})

	out := Ordering{ReportIDs: make([]model.ID, 0, len(rows))}
	for _, r := range rows {
		out.ReportIDs = append(out.ReportIDs, r.ID)
		if unread[r.ID] {
			out.UnreadCount++
		}
	}
	return out
}

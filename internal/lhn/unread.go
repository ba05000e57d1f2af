package lhn

import "github.com/rcliao/lhn/internal/model"

// IsUnread reports whether r has activity past the viewer's read marker.
// The active report is always read: viewing it counts as reading it, but
// nothing is written back.
func IsUnread(r model.Report, activeReportID model.ID) bool {
	if activeReportID != "" && r.ID == activeReportID {
		return false
	}
	return r.MaxSequenceNumber > r.LastReadSequenceNumber
}

// UnreadFlags evaluates IsUnread for every report.
func UnreadFlags(reports []model.Report, activeReportID model.ID) map[model.ID]bool {
	flags := make(map[model.ID]bool, len(reports))
	for _, r := range reports {
		flags[r.ID] = IsUnread(r, activeReportID)
	}
	return flags
}

package model

// Store keys the navigation reads.
const (
	KeyPersonalDetails         = "personalDetails"
	KeyCurrentlyViewedReportID = "currentlyViewedReportID"
	KeyPriorityMode            = "nvp_priorityMode"
	KeySession                 = "session"
	KeyBetas                   = "betas"

	CollectionReport = "report_"
	CollectionPolicy = "policy_"
)

// Collections lists the key prefixes that group records of one kind.
var Collections = []string{CollectionReport, CollectionPolicy}

// SingleKeys lists the non-collection keys the navigation depends on.
var SingleKeys = []string{
	KeyPersonalDetails,
	KeyCurrentlyViewedReportID,
	KeyPriorityMode,
	KeySession,
	KeyBetas,
}

// ReportKey returns the store key of a report.
func ReportKey(id ID) string { return CollectionReport + string(id) }

// PolicyKey returns the store key of a policy.
func PolicyKey(id ID) string { return CollectionPolicy + string(id) }

// CollectionOf returns the collection prefix key belongs to, or "".
func CollectionOf(key string) string {
	for _, c := range Collections {
		if len(key) > len(c) && key[:len(c)] == c {
			return c
		}
	}
	return ""
}

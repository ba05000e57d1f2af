package lhn

import "github.com/rcliao/lhn/internal/model"

// State is one consistent view of everything the navigation depends on.
type State struct {
	Reports         []model.Report
	Policies        map[model.ID]model.Policy
	Betas           model.BetaSet
	PriorityMode    model.PriorityMode
	ActiveReportID  model.ID
	Session         model.Session
	PersonalDetails model.PersonalDetails
	StrictChatTypes bool
}

// Context returns the eligibility context of s.
func (s State) Context() Context {
	return Context{
		Betas:           s.Betas,
		Policies:        s.Policies,
		ActiveReportID:  s.ActiveReportID,
		StrictChatTypes: s.StrictChatTypes,
	}
}

// Compute filters, annotates and orders the reports of s.
func Compute(s State) Ordering {
	eligible := EligibleReports(s.Reports, s.Context())
	return Order(eligible, s.PriorityMode, UnreadFlags(eligible, s.ActiveReportID))
}

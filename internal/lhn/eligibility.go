// Package lhn decides which reports the left-hand navigation shows and in
// what order. Everything here is a pure function of its inputs.
package lhn

import "github.com/rcliao/lhn/internal/model"

// Context is the non-report state eligibility depends on.
type Context struct {
	Betas          model.BetaSet
	Policies       map[model.ID]model.Policy
	ActiveReportID model.ID

	// StrictChatTypes hides reports whose chat type is not recognized
	// instead of treating them as plain chats.
	StrictChatTypes bool
}

// IsReportEligible reports whether r may be shown at all.
func IsReportEligible(r model.Report, c Context) bool {
	if !r.HasParticipants() {
		return false
	}
	if r.IsHidden {
		return false
	}
	if r.IsArchived && (c.ActiveReportID == "" || r.ID != c.ActiveReportID) {
		return false
	}

	switch r.ChatType.Kind() {
	case model.KindPolicyExpenseChat:
		return c.Betas.Has(model.BetaPolicyExpenseChat)
	case model.KindPolicyRoom:
		return c.Betas.Has(model.BetaPolicyRooms)
	case model.KindDefaultRoom:
		// Free workspaces always surface their default rooms.
		return c.Betas.Has(model.BetaDefaultRooms) || c.isFreePolicy(r.PolicyID)
	case model.KindUnknown:
		return !c.StrictChatTypes
	}
	return true
}

// isFreePolicy is false while the policy has not been loaded.
func (c Context) isFreePolicy(id model.ID) bool {
	if id == "" {
		return false
	}
	p, ok := c.Policies[id]
	return ok && p.Type == model.PolicyTypeFree
}

// EligibleReports filters reports, keeping input order.
func EligibleReports(reports []model.Report, c Context) []model.Report {
	out := make([]model.Report, 0, len(reports))
	for _, r := range reports {
		if IsReportEligible(r, c) {
			out = append(out, r)
		}
	}
	return out
}

package model

import (
	"encoding/json"
	"sort"
	"strings"
)

// PolicyType is the billing tier of a workspace policy.
type PolicyType string

const (
	PolicyTypeFree      PolicyType = "free"
	PolicyTypeTeam      PolicyType = "team"
	PolicyTypeCorporate PolicyType = "corporate"
)

// Policy is a workspace record.
type Policy struct {
	ID   ID         `json:"policyID"`
	Name string     `json:"name,omitempty"`
	Type PolicyType `json:"type,omitempty"`
}

// Beta flag names.
const (
	BetaAll               = "all"
	BetaPolicyExpenseChat = "policyExpenseChat"
	BetaPolicyRooms       = "policyRooms"
	BetaDefaultRooms      = "defaultRooms"
)

// BetaSet holds the betas granted to the viewer. The zero value denies everything.
type BetaSet map[string]bool

// NewBetaSet builds a set from a list of beta names.
func NewBetaSet(names ...string) BetaSet {
	s := make(BetaSet, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			s[n] = true
		}
	}
	return s
}

// Has reports whether beta is granted. The "all" beta grants every beta.
func (s BetaSet) Has(beta string) bool {
	return s[beta] || s[BetaAll]
}

// Names returns the granted betas in sorted order.
func (s BetaSet) Names() []string {
	out := make([]string, 0, len(s))
	for n, ok := range s {
		if ok {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// UnmarshalJSON reads the list form the store keeps betas in.
func (s *BetaSet) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	*s = NewBetaSet(names...)
	return nil
}

// MarshalJSON writes the list form.
func (s BetaSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// PriorityMode is the viewer's navigation preference.
type PriorityMode string

const (
	PriorityModeDefault PriorityMode = "default"
	// PriorityModeFocus shows only unread reports ("#focus").
	PriorityModeFocus PriorityMode = "gsd"
)

// Normalize maps unknown or empty values to the default mode.
func (m PriorityMode) Normalize() PriorityMode {
	if m == PriorityModeFocus {
		return PriorityModeFocus
	}
	return PriorityModeDefault
}

// Session identifies the viewer.
type Session struct {
	Email     string `json:"email,omitempty"`
	AccountID int64  `json:"accountID,omitempty"`
}

// PersonalDetail is the display information of one login.
type PersonalDetail struct {
	Login       string `json:"login,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
}

// PersonalDetails is keyed by login.
type PersonalDetails map[string]PersonalDetail

// DisplayNames joins the short names of the participants, falling back to the login.
func (d PersonalDetails) DisplayNames(participants []string) string {
	names := make([]string, 0, len(participants))
	for _, login := range participants {
		pd, ok := d[login]
		switch {
		case ok && pd.FirstName != "":
			names = append(names, pd.FirstName)
		case ok && pd.DisplayName != "":
			names = append(names, pd.DisplayName)
		default:
			names = append(names, login)
		}
	}
	return strings.Join(names, ", ")
}

// Package model defines the records the navigation engine reads from the store.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID identifies a report or policy. The store may hold it as a JSON string
// or number; it is always kept in its string form.
type ID string

// UnmarshalJSON accepts both `"123"` and `123`.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Less orders IDs numerically when both are integers. Integers sort before
// non-numeric IDs, which sort lexicographically.
func (id ID) Less(other ID) bool {
	a, aErr := strconv.ParseInt(string(id), 10, 64)
	b, bErr := strconv.ParseInt(string(other), 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		if a != b {
			return a < b
		}
		return id < other
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	}
	return id < other
}

// ChatType tags the room category of a report. Empty means a plain chat.
type ChatType string

const (
	ChatTypeNone              ChatType = ""
	ChatTypePolicyExpenseChat ChatType = "policyExpenseChat"
	ChatTypePolicyRoom        ChatType = "policyRoom"
	ChatTypePolicyAdmins      ChatType = "policyAdmins"
	ChatTypePolicyAnnounce    ChatType = "policyAnnounce"
	ChatTypeDomainAll         ChatType = "domainAll"
)

// Kind is the eligibility variant a chat type belongs to.
type Kind int

const (
	KindPlain Kind = iota
	KindPolicyExpenseChat
	KindPolicyRoom
	KindDefaultRoom
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindPolicyExpenseChat:
		return "policy_expense_chat"
	case KindPolicyRoom:
		return "policy_room"
	case KindDefaultRoom:
		return "default_room"
	}
	return "unknown"
}

// Kind classifies the chat type.
func (c ChatType) Kind() Kind {
	switch c {
	case ChatTypeNone:
		return KindPlain
	case ChatTypePolicyExpenseChat:
		return KindPolicyExpenseChat
	case ChatTypePolicyRoom:
		return KindPolicyRoom
	case ChatTypePolicyAdmins, ChatTypePolicyAnnounce, ChatTypeDomainAll:
		return KindDefaultRoom
	}
	return KindUnknown
}

// Report is a conversation that may appear in the left-hand navigation.
type Report struct {
	ID                     ID       `json:"reportID"`
	ReportName             string   `json:"reportName,omitempty"`
	Participants           []string `json:"participants,omitempty"`
	ChatType               ChatType `json:"chatType,omitempty"`
	PolicyID               ID       `json:"policyID,omitempty"`
	LastReadSequenceNumber int64    `json:"lastReadSequenceNumber"`
	MaxSequenceNumber      int64    `json:"maxSequenceNumber"`
	LastMessageTimestamp   int64    `json:"lastMessageTimestamp,omitempty"`
	IsArchived             bool     `json:"isArchived,omitempty"`
	IsHidden               bool     `json:"isHidden,omitempty"`
}

// HasParticipants reports whether at least one non-blank participant is set.
func (r Report) HasParticipants() bool {
	for _, p := range r.Participants {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

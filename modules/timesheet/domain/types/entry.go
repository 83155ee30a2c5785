package types

import (
	"encoding/json"
	"math"
	"time"
)

// Status is the lifecycle stage of a single time entry. Draft and
// Suggestion are the equivalent start state.
type Status string

const (
	StatusDraft       Status = "Draft"
	StatusSuggestion  Status = "Suggestion"
	StatusConfirmed   Status = "Confirmed"
	StatusForApproval Status = "For Approval"
	StatusApproved    Status = "Approved"
	StatusQuestion    Status = "Question"
	StatusRejected    Status = "Rejected"
)

// AllStatuses lists every status a stored entry may carry. Order matters for
// totality checks of the revert fallback tables.
var AllStatuses = []Status{
	StatusDraft,
	StatusSuggestion,
	StatusConfirmed,
	StatusForApproval,
	StatusApproved,
	StatusQuestion,
	StatusRejected,
}

func (s Status) Known() bool {
	for _, k := range AllStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// RequiresComment reports whether a forward transition into s must carry a
// non-empty comment.
func (s Status) RequiresComment() bool {
	return s == StatusQuestion || s == StatusRejected
}

// PanelType is the role/stage context a transition is requested under. It
// disambiguates the revert fallback when an entry has no audit history.
type PanelType string

const (
	PanelDraft       PanelType = "Draft"
	PanelSuggestion  PanelType = "Suggestion"
	PanelConfirmed   PanelType = "Confirmed"
	PanelForApproval PanelType = "For Approval"
	PanelApproved    PanelType = "Approved"
)

var AllPanelTypes = []PanelType{
	PanelDraft,
	PanelSuggestion,
	PanelConfirmed,
	PanelForApproval,
	PanelApproved,
}

func (p PanelType) Known() bool {
	for _, k := range AllPanelTypes {
		if p == k {
			return true
		}
	}
	return false
}

type Comment struct {
	ID      int       `json:"id"`
	Text    string    `json:"text"`
	Author  int64     `json:"author"`
	Created time.Time `json:"created"`
}

// TimeHistoryRecord is one append-only audit snapshot taken before a status
// or time mutation. Reverts walk this trail most-recent-first.
type TimeHistoryRecord struct {
	ID      int       `json:"id"`
	Status  Status    `json:"status"`
	Minutes int       `json:"minutes"`
	Actor   int64     `json:"actor"`
	Created time.Time `json:"created"`
}

// History tolerates the legacy encodings of the audit field: a plain array,
// a double-encoded JSON string, or garbage. Anything unreadable decodes to
// an empty trail rather than failing the whole row.
type History []TimeHistoryRecord

func (h *History) UnmarshalJSON(raw []byte) error {
	var records []TimeHistoryRecord
	if err := json.Unmarshal(raw, &records); err == nil {
		*h = records
		return nil
	}
	var nested string
	if err := json.Unmarshal(raw, &nested); err == nil {
		if err := json.Unmarshal([]byte(nested), &records); err == nil {
			*h = records
			return nil
		}
	}
	*h = nil
	return nil
}

// TimeEntry is one dated, timed unit of logged work. JSON field names are
// wire names shared with the legacy list store and must not change.
type TimeEntry struct {
	ID            int       `json:"ID"`
	UniqueID      string    `json:"UniqueId"`
	AuthorID      int64     `json:"AuthorId"`
	TaskDate      string    `json:"TaskDate"`
	TaskTime      float64   `json:"TaskTime"`
	TaskTimeInMin int       `json:"TaskTimeInMin"`
	Status        Status    `json:"Status"`
	Description   string    `json:"Description"`
	Comments      []Comment `json:"Comments"`
	TimeHistory   History   `json:"TimeHistory"`
	ParentID      int64     `json:"ParentID"`
	CategoryID    string    `json:"CategoryId"`
	Category      string    `json:"Category"`
}

// HoursFromMinutes derives the decimal-hours figure kept alongside the
// minute figure. Both stem from one duration and must stay consistent.
func HoursFromMinutes(minutes int) float64 {
	return math.Round(float64(minutes)/60*100) / 100
}

// SetMinutes updates both duration fields together.
func (e *TimeEntry) SetMinutes(minutes int) {
	e.TaskTimeInMin = minutes
	e.TaskTime = HoursFromMinutes(minutes)
}

// NextHistoryID returns the next sequence id for the entry's audit trail.
func (e *TimeEntry) NextHistoryID() int {
	max := 0
	for _, r := range e.TimeHistory {
		if r.ID > max {
			max = r.ID
		}
	}
	return max + 1
}

// NextCommentID returns the next sequence id for the entry's comments.
func (e *TimeEntry) NextCommentID() int {
	max := 0
	for _, c := range e.Comments {
		if c.ID > max {
			max = c.ID
		}
	}
	return max + 1
}

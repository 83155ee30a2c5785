package types

import "time"

// OMTStatusRecord is one append-only entry in a user's day-level status
// history. It drives the read-only timeline and gates whether a
// "send to management" action already happened for a date.
type OMTStatusRecord struct {
	ID       string    `json:"id"`
	Actor    int64     `json:"actor"`
	Status   Status    `json:"status"` // Confirmed or Approved
	Comment  string    `json:"comment"`
	Created  time.Time `json:"created"`
	TaskDate string    `json:"taskDate"`
}

// DaySnapshot is the payload of an outbound panel notification: the full
// state of one user's date at the moment a panel-level action fired.
type DaySnapshot struct {
	Kind         string      `json:"kind"` // confirmation or management
	Date         string      `json:"date"`
	ViewedUser   int64       `json:"viewed_user"`
	Actor        int64       `json:"actor"`
	Comment      string      `json:"comment,omitempty"`
	TotalMinutes int         `json:"total_minutes"`
	TaskCount    int         `json:"task_count"`
	Entries      []TimeEntry `json:"entries"`
}

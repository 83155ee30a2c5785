package services

import (
	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/types"
	"github.com/omtlabs/timesheet-hub/pkg/httperr"
)

// EntryProbe carries whichever identity a call site has for one logical
// entry. The canonical identity is UniqueID; the three-part natural key is
// a back-compat shim for call sites that predate canonical ids.
type EntryProbe struct {
	UniqueID string
	ID       int

	AuthorID int64
	TaskDate string
	ParentID int64

	// CheckDate additionally requires TaskDate equality on the id-based
	// fallback tier.
	CheckDate bool
}

func (p EntryProbe) hasNaturalKey() bool {
	return p.AuthorID != 0 && NormalizeTaskDate(p.TaskDate) != "" && p.ParentID != 0
}

func (p EntryProbe) hasIdentity() bool {
	return p.UniqueID != "" || p.ID != 0
}

// FindEntry locates one logical entry inside a row's array. Matching order,
// first match wins: (1) the natural key (AuthorId, trimmed TaskDate,
// ParentID); (2) UniqueId or within-row ID, with an optional date check.
// Neither key may be assumed populated, so both tiers are tried.
func FindEntry(entries []types.TimeEntry, probe EntryProbe) (int, *types.TimeEntry, error) {
	if probe.hasNaturalKey() {
		for i := range entries {
			if matchesNaturalKey(&entries[i], probe) {
				return i, &entries[i], nil
			}
		}
	}
	if probe.hasIdentity() {
		for i := range entries {
			if matchesIdentity(&entries[i], probe) {
				return i, &entries[i], nil
			}
		}
	}
	return -1, nil, httperr.NewNotFound("entry not found")
}

// matchesNaturalKey is the one place natural-key matching is allowed to
// live. Every other code path resolves entries canonically.
func matchesNaturalKey(e *types.TimeEntry, probe EntryProbe) bool {
	return e.AuthorID == probe.AuthorID &&
		SameTaskDate(e.TaskDate, probe.TaskDate) &&
		e.ParentID == probe.ParentID
}

func matchesIdentity(e *types.TimeEntry, probe EntryProbe) bool {
	switch {
	case probe.UniqueID != "" && e.UniqueID == probe.UniqueID:
	case probe.ID != 0 && e.ID == probe.ID:
	default:
		return false
	}
	if probe.CheckDate && NormalizeTaskDate(probe.TaskDate) != "" {
		return SameTaskDate(e.TaskDate, probe.TaskDate)
	}
	return true
}

// removeByNaturalKey drops the entry matching the three-part key, leaving
// same-id siblings on other dates alone. Returns the remaining entries and
// whether anything was removed.
func removeByNaturalKey(entries []types.TimeEntry, authorID int64, taskDate string, parentID int64) ([]types.TimeEntry, bool) {
	for i := range entries {
		if entries[i].AuthorID == authorID &&
			SameTaskDate(entries[i].TaskDate, taskDate) &&
			entries[i].ParentID == parentID {
			return append(entries[:i:i], entries[i+1:]...), true
		}
	}
	return entries, false
}

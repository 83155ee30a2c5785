package authz

// Roles of the timesheet permission model. A lead views and confirms other
// users' days; staff act only on their own.
const (
	RoleLead  = "lead"
	RoleStaff = "staff"
)

const (
	ActionRead  = "read"
	ActionWrite = "write"
)

// Any site matches the wildcard domain in policy rows that apply everywhere.
const DomainAnySite = "*"

const (
	ObjectPanel         = "timesheet.panel"
	ObjectEntries       = "timesheet.entries"
	ObjectPanelConfirm  = "timesheet.panel-confirm"
	ObjectPanelManage   = "timesheet.panel-management"
	ObjectStatusRecords = "timesheet.status-records"
)

package models

// Work order status codes as used by the server. The client only ever
// toggles between StatusInProgress and StatusRealized.
const (
	StatusPlanned    = "PLANNED"
	StatusInProgress = "IN_PROGRESS"
	StatusRealized   = "REALIZED"
	StatusCancelled  = "CANCELLED"
)

// StatusLabel maps a status code to its display label. Used for the
// optimistic local update while offline; the server's canonical label
// overwrites it on replay.
func StatusLabel(code string) string {
	switch code {
	case StatusPlanned:
		return "Planned"
	case StatusInProgress:
		return "In progress"
	case StatusRealized:
		return "Realized"
	case StatusCancelled:
		return "Cancelled"
	default:
		return code
	}
}

// SiteSummary is the site snippet embedded in a work order dump.
type SiteSummary struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Street string `json:"street"`
	City   string `json:"city"`
}

// WorkOrder is a job assigned to the technician. Sites/systems are
// referenced by id against the catalog collections; the embedded site
// summary lets list views render without a join.
type WorkOrder struct {
	ID              int64       `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	StatusCode      string      `json:"status_code"`
	StatusLabel     string      `json:"status_label"`
	WorkTypeCode    string      `json:"work_type_code"`
	WorkTypeLabel   string      `json:"work_type_label"`
	PlannedDate     string      `json:"planned_date"`
	PlannedTimeFrom string      `json:"planned_time_from"`
	PlannedTimeTo   string      `json:"planned_time_to"`
	Site            SiteSummary `json:"site"`
	SystemIDs       []int64     `json:"system_ids"`
	SystemBadges    []string    `json:"system_badges"`

	// Linked report ids; nil when the report has not been created yet.
	ServiceReportID       *int64 `json:"service_report_id"`
	MaintenanceProtocolID *int64 `json:"maintenance_protocol_id"`
}

// WorkOrderDump is the response of the work order dump endpoint.
type WorkOrderDump struct {
	WorkOrders []WorkOrder `json:"workorders"`
}

// StatusResult is the server's canonical answer to a set-status call.
type StatusResult struct {
	ID          int64  `json:"id"`
	StatusCode  string `json:"status_code"`
	StatusLabel string `json:"status_label"`
}

package models

// DraftKind distinguishes the two report forms that keep drafts.
type DraftKind string

const (
	DraftServiceReport       DraftKind = "sr"
	DraftMaintenanceProtocol DraftKind = "mp"
)

// Draft is the autosaved buffer of a report form, one per report id.
// It is overwritten on every debounced autosave and never deleted
// explicitly: a newer draft or an accepted outbox entry supersedes it.
type Draft struct {
	Kind        DraftKind
	ReportID    int64
	WorkOrderID int64
	Fields      map[string]any
	SavedAt     int64 // epoch millis
}

// Meta keys used by the client.
const (
	MetaLastSync   = "last_sync"    // display string
	MetaLastSyncTS = "last_sync_ts" // epoch millis
	MetaNotifCount = "wo_notif_count"
	MetaClientID   = "client_id"
)

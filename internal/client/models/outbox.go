package models

import (
	"encoding/json"
	"fmt"
)

// OutboxKind tags the variant carried in an outbox entry's payload.
type OutboxKind string

const (
	KindReportSave   OutboxKind = "servicereport_save"
	KindProtocolSave OutboxKind = "maintenanceprotocol_save"
	KindStatusChange OutboxKind = "workorder_status_set"
)

// OutboxEntry is one not-yet-confirmed server mutation. Entries replay
// in CreatedAt order; ID (auto-assigned, monotonically increasing)
// breaks ties for entries created in the same millisecond.
type OutboxEntry struct {
	ID        int64
	Kind      OutboxKind
	Payload   json.RawMessage
	CreatedAt int64 // epoch millis
	Attempts  int
}

// DeadEntry is an outbox entry retired after repeated definitive
// rejections. Kept for inspection, excluded from replay.
type DeadEntry struct {
	ID        int64
	Kind      OutboxKind
	Payload   json.RawMessage
	CreatedAt int64
	Attempts  int
	Reason    string
	DeadAt    int64
}

// ReportSavePayload is the body of a servicereport_save entry.
type ReportSavePayload struct {
	ReportID    int64          `json:"sr_id"`
	WorkOrderID int64          `json:"wo_id"`
	Fields      map[string]any `json:"fields"`
}

// ProtocolSavePayload is the body of a maintenanceprotocol_save entry.
type ProtocolSavePayload struct {
	ProtocolID  int64          `json:"mp_id"`
	WorkOrderID int64          `json:"wo_id"`
	Fields      map[string]any `json:"fields"`
}

// StatusChangePayload is the body of a workorder_status_set entry.
type StatusChangePayload struct {
	WorkOrderID int64  `json:"workorder_id"`
	Status      string `json:"status"`
}

// DecodePayload unmarshals an entry's payload into the concrete type
// for its kind.
func (e *OutboxEntry) DecodePayload() (any, error) {
	switch e.Kind {
	case KindReportSave:
		var p ReportSavePayload
		return p, json.Unmarshal(e.Payload, &p)
	case KindProtocolSave:
		var p ProtocolSavePayload
		return p, json.Unmarshal(e.Payload, &p)
	case KindStatusChange:
		var p StatusChangePayload
		return p, json.Unmarshal(e.Payload, &p)
	default:
		return nil, fmt.Errorf("unknown outbox kind: %q", e.Kind)
	}
}

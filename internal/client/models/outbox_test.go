package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name string
		kind OutboxKind
		json string
		want any
	}{
		{
			"report save",
			KindReportSave,
			`{"sr_id":15,"wo_id":7,"fields":{"notes":"ok"}}`,
			ReportSavePayload{ReportID: 15, WorkOrderID: 7, Fields: map[string]any{"notes": "ok"}},
		},
		{
			"protocol save",
			KindProtocolSave,
			`{"mp_id":8,"wo_id":7,"fields":null}`,
			ProtocolSavePayload{ProtocolID: 8, WorkOrderID: 7},
		},
		{
			"status change",
			KindStatusChange,
			`{"workorder_id":7,"status":"REALIZED"}`,
			StatusChangePayload{WorkOrderID: 7, Status: StatusRealized},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &OutboxEntry{Kind: tt.kind, Payload: json.RawMessage(tt.json)}
			got, err := e.DecodePayload()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePayload_UnknownKind(t *testing.T) {
	e := &OutboxEntry{Kind: "workorder_delete", Payload: json.RawMessage(`{}`)}
	_, err := e.DecodePayload()
	assert.Error(t, err)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Planned", StatusLabel(StatusPlanned))
	assert.Equal(t, "In progress", StatusLabel(StatusInProgress))
	assert.Equal(t, "Realized", StatusLabel(StatusRealized))
	assert.Equal(t, "Cancelled", StatusLabel(StatusCancelled))
	assert.Equal(t, "WEIRD", StatusLabel("WEIRD"), "unknown codes pass through")
}

package state

import (
	"github.com/stablemint/rsm/internal/logger"
	"github.com/stablemint/rsm/internal/types"
)

var recorderLogger = logger.GetForComponent("recorder")

// EventRecorder persists engine events to the database. Persistence is
// best effort: a failed write is logged and does not fail the operation
// that produced the event.
type EventRecorder struct{}

// NewEventRecorder returns a recorder backed by the global database pool.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// RecordOperation saves an operation receipt.
func (r *EventRecorder) RecordOperation(receipt types.OperationReceipt) {
	if err := SaveOperationReceipt(&receipt); err != nil {
		recorderLogger.Error().
			Err(err).
			Str("receipt_id", receipt.ID).
			Str("op_type", string(receipt.Type)).
			Msg("Failed to persist operation receipt.")
	}
}

// RecordFloorChange saves a floor price transition.
func (r *EventRecorder) RecordFloorChange(change types.FloorChange) {
	if err := SaveFloorChange(&change); err != nil {
		recorderLogger.Error().
			Err(err).
			Str("new_price", change.New).
			Msg("Failed to persist floor change.")
	}
}

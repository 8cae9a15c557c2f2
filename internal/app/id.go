package app

import "github.com/google/uuid"

// newRecordID produces the identifier of a status history record.
// Isolated here so the ID strategy can evolve independently.
func newRecordID() string {
	return uuid.NewString()
}

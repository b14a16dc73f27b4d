package domain

import (
	"time"

	"github.com/google/uuid"
)

// StatusHistoryEntry is one row of the append-only audit trail. Entries are
// never mutated or deleted once written.
type StatusHistoryEntry struct {
	ID        int64       `json:"id"`
	OrderID   uuid.UUID   `json:"order_id"`
	Status    OrderStatus `json:"status"`
	Comment   string      `json:"comment,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

package model

import "time"

// MappedItem is a record of one mapping-engine output, kept in the
// mapped-items recency buffer for the debug dashboard.
type MappedItem struct {
	Kind     string      `json:"type"`
	Source   interface{} `json:"source"`
	Mapped   interface{} `json:"mapped"`
	MappedAt time.Time   `json:"mappedAt"`
}

const (
	MappedKindContact  = "contact"
	MappedKindActivity = "activity"
)

package model

import "time"

// InstanceStats is a point-in-time summary of the punishment database.
type InstanceStats struct {
	UniquePlayers int64            `json:"uniquePlayers"`
	CategoryStats map[string]int64 `json:"categoryStats"`
	CollectedAt   time.Time        `json:"collectedAt"`
}

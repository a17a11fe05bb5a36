package model

import "time"

// RecordShare points at one record. It lives in the key-value cache only and
// disappears when its TTL runs out.
type RecordShare struct {
	Key       string    `json:"key"`
	Category  string    `json:"category"`
	Record    int64     `json:"record"`
	Protected bool      `json:"protected"`
	Creator   string    `json:"creator"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

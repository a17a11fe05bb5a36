package model

import "time"

// Player is the display identity of a record subject or issuer.
type Player struct {
	UUID      string `json:"uuid"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatarUrl"`
}

// HistoryRecord is a row of the LiteBans history table: every name and IP a
// UUID has joined with.
type HistoryRecord struct {
	ID   int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Date time.Time `gorm:"column:date" json:"date"`
	Name string    `gorm:"column:name;size:16;index" json:"name"`
	UUID string    `gorm:"column:uuid;size:36;index" json:"uuid"`
	IP   string    `gorm:"column:ip;size:45" json:"ip"`
}

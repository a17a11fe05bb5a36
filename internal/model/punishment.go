package model

import "time"

// Console is the identity LiteBans records for actions issued from the server console.
const Console = "CONSOLE"

type Status string

const (
	StatusActive  Status = "active"
	StatusRemoved Status = "removed"
	StatusExpired Status = "expired"
)

// PunishmentRecord is a row of any LiteBans punishment table. Time and Until
// are unix milliseconds; Until <= 0 means the punishment never expires.
type PunishmentRecord struct {
	ID              int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UUID            *string    `gorm:"column:uuid;size:36;index" json:"uuid"`
	IP              *string    `gorm:"column:ip;size:45" json:"ip"`
	Reason          *string    `gorm:"column:reason;size:2048" json:"reason"`
	BannedByUUID    *string    `gorm:"column:banned_by_uuid;size:36;index" json:"bannedByUuid"`
	BannedByName    *string    `gorm:"column:banned_by_name;size:128" json:"bannedByName"`
	RemovedByUUID   *string    `gorm:"column:removed_by_uuid;size:36" json:"removedByUuid"`
	RemovedByName   *string    `gorm:"column:removed_by_name;size:128" json:"removedByName"`
	RemovedByDate   *time.Time `gorm:"column:removed_by_date" json:"removedByDate"`
	RemovedByReason *string    `gorm:"column:removed_by_reason;size:2048" json:"removedByReason"`
	Time            int64      `gorm:"column:time;index" json:"time"`
	Until           int64      `gorm:"column:until" json:"until"`
	Template        *int       `gorm:"column:template" json:"template"`
	ServerScope     *string    `gorm:"column:server_scope;size:32" json:"serverScope"`
	ServerOrigin    *string    `gorm:"column:server_origin;size:32" json:"serverOrigin"`
	Silent          bool       `gorm:"column:silent" json:"silent"`
	IPBan           bool       `gorm:"column:ipban" json:"ipban"`
	IPBanWildcard   bool       `gorm:"column:ipban_wildcard" json:"ipbanWildcard"`
	Active          bool       `gorm:"column:active;index" json:"active"`
	Warned          *bool      `gorm:"column:warned" json:"warned,omitempty"`
}

func (r PunishmentRecord) SubjectUUID() string { return deref(r.UUID) }

func (r PunishmentRecord) IssuerUUID() string { return deref(r.BannedByUUID) }

func (r PunishmentRecord) Permanent() bool { return r.Until <= 0 }

// Status derives the lifecycle state at now.
func (r PunishmentRecord) Status(now time.Time) Status {
	if deref(r.RemovedByUUID) != "" || deref(r.RemovedByName) != "" {
		return StatusRemoved
	}
	if r.Until > 0 && r.Until <= now.UnixMilli() {
		return StatusExpired
	}
	if !r.Active {
		return StatusRemoved
	}
	return StatusActive
}

// EnrichedRecord is a record with resolved identities and derived fields. It
// is built per request and never stored.
type EnrichedRecord struct {
	PunishmentRecord
	Category  string  `json:"category"`
	Player    *Player `json:"player"`
	Staff     *Player `json:"staff,omitempty"`
	Status    Status  `json:"status"`
	Permanent bool    `json:"permanent"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

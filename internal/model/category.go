package model

import "strings"

// Category is one kind of punishment and the LiteBans table that stores it.
type Category struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Table       string `json:"-"`
	// Kicks cannot be lifted, so their table has no removed_by_* columns.
	Removable bool `json:"removable"`
}

const DefaultTablePrefix = "litebans_"

var categories = []Category{
	{ID: "ban", DisplayName: "Ban", Table: "bans", Removable: true},
	{ID: "mute", DisplayName: "Mute", Table: "mutes", Removable: true},
	{ID: "warning", DisplayName: "Warn", Table: "warnings", Removable: true},
	{ID: "kick", DisplayName: "Kick", Table: "kicks", Removable: false},
}

// Categories returns every category in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func LookupCategory(id string) (Category, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// TableName returns the physical table for the category under the given prefix.
func (c Category) TableName(prefix string) string {
	return prefix + c.Table
}

// HistoryTable is the LiteBans name/uuid/ip history table.
func HistoryTable(prefix string) string {
	return prefix + "history"
}

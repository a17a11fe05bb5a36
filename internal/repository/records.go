package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"litebans-web/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConnectionReset marks a transient transport failure talking to the
	// database. Its text is what clients receive.
	ErrConnectionReset = errors.New("ECONNRESET")
	ErrInvalidSort     = errors.New("invalid sort")
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Filter narrows and orders a record query. Subject matches a record whose
// punished player or issuer is that UUID.
type Filter struct {
	Subject   string
	SortBy    string
	SortOrder SortOrder
}

// sortColumns maps JSON field names accepted from clients to columns.
var sortColumns = map[string]string{
	"id":            "id",
	"uuid":          "uuid",
	"ip":            "ip",
	"reason":        "reason",
	"bannedByUuid":  "banned_by_uuid",
	"bannedByName":  "banned_by_name",
	"time":          "time",
	"until":         "until",
	"serverScope":   "server_scope",
	"serverOrigin":  "server_origin",
	"silent":        "silent",
	"ipban":         "ipban",
	"active":        "active",
	"removedByUuid": "removed_by_uuid",
	"removedByName": "removed_by_name",
	"removedByDate": "removed_by_date",
}

type Records struct {
	db     *gorm.DB
	prefix string
}

func NewRecords(db *gorm.DB, tablePrefix string) *Records {
	return &Records{db: db, prefix: tablePrefix}
}

func (r *Records) table(ctx context.Context, cat model.Category) *gorm.DB {
	return r.db.WithContext(ctx).Table(cat.TableName(r.prefix))
}

func (r *Records) filtered(ctx context.Context, cat model.Category, f Filter) *gorm.DB {
	q := r.table(ctx, cat)
	if f.Subject != "" {
		q = q.Where("uuid = ? OR banned_by_uuid = ?", f.Subject, f.Subject)
	}
	return q
}

func (r *Records) Count(ctx context.Context, cat model.Category, f Filter) (int64, error) {
	var n int64
	if err := r.filtered(ctx, cat, f).Count(&n).Error; err != nil {
		return 0, classify(fmt.Errorf("count %s: %w", cat.ID, err))
	}
	return n, nil
}

// List returns one window of records. Without an explicit sort the newest
// records come first.
func (r *Records) List(ctx context.Context, cat model.Category, f Filter, offset, limit int) ([]model.PunishmentRecord, error) {
	order, err := orderFor(cat, f)
	if err != nil {
		return nil, err
	}

	var out []model.PunishmentRecord
	err = r.filtered(ctx, cat, f).
		Order(order).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, classify(fmt.Errorf("list %s: %w", cat.ID, err))
	}
	return out, nil
}

func (r *Records) Get(ctx context.Context, cat model.Category, id int64) (*model.PunishmentRecord, error) {
	var rec model.PunishmentRecord
	if err := r.table(ctx, cat).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, classify(fmt.Errorf("get %s %d: %w", cat.ID, id, err))
	}
	return &rec, nil
}

// ListSince returns up to limit records with an id above afterID, oldest first.
func (r *Records) ListSince(ctx context.Context, cat model.Category, afterID int64, limit int) ([]model.PunishmentRecord, error) {
	var out []model.PunishmentRecord
	err := r.table(ctx, cat).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, classify(fmt.Errorf("list %s since %d: %w", cat.ID, afterID, err))
	}
	return out, nil
}

// UniquePlayers counts the distinct UUIDs in the history table.
func (r *Records) UniquePlayers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Table(model.HistoryTable(r.prefix)).
		Distinct("uuid").
		Count(&n).Error
	if err != nil {
		return 0, classify(fmt.Errorf("count players: %w", err))
	}
	return n, nil
}

// LatestName returns the most recent name the UUID joined with.
func (r *Records) LatestName(ctx context.Context, uuid string) (string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Table(model.HistoryTable(r.prefix)).
		Where("uuid = ?", uuid).
		Order("date DESC").
		Limit(1).
		Pluck("name", &names).Error
	if err != nil {
		return "", classify(fmt.Errorf("latest name of %s: %w", uuid, err))
	}
	if len(names) == 0 || names[0] == "" {
		return "", ErrNotFound
	}
	return names[0], nil
}

// ValidateSort reports whether f names a sort field and order valid for cat.
func ValidateSort(cat model.Category, f Filter) error {
	_, err := orderFor(cat, f)
	return err
}

func orderFor(cat model.Category, f Filter) (clause.OrderByColumn, error) {
	order := SortDesc
	if f.SortOrder != "" {
		order = SortOrder(strings.ToLower(string(f.SortOrder)))
	}
	if order != SortAsc && order != SortDesc {
		return clause.OrderByColumn{}, fmt.Errorf("%w: order %q", ErrInvalidSort, f.SortOrder)
	}

	column := "time"
	if f.SortBy != "" {
		c, ok := sortColumns[f.SortBy]
		if !ok || (!cat.Removable && strings.HasPrefix(c, "removed_")) {
			return clause.OrderByColumn{}, fmt.Errorf("%w: field %q", ErrInvalidSort, f.SortBy)
		}
		column = c
	}
	return clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: order == SortDesc}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case IsConnectionReset(err):
		return fmt.Errorf("%w: %v", ErrConnectionReset, err)
	default:
		return err
	}
}

// IsConnectionReset reports whether err is a dropped or reset database connection.
func IsConnectionReset(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection reset")
}

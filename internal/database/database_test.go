package database

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestOpenSQLite(t *testing.T) {
	db, err := Open(context.Background(), "sqlite", "file::memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var one int
	if err := db.Raw("SELECT 1").Scan(&one).Error; err != nil || one != 1 {
		t.Errorf("SELECT 1 = %d, %v", one, err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "oracle", "x", zerolog.Nop()); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestMySQLConfigForcesParseTime(t *testing.T) {
	tests := []string{
		"litebans:secret@tcp(db:3306)/litebans",
		"litebans:secret@tcp(db:3306)/litebans?charset=utf8mb4",
		"litebans:secret@tcp(db:3306)/litebans?parseTime=false",
	}
	for _, dsn := range tests {
		cfg, err := mysqlConfig(dsn)
		if err != nil {
			t.Fatalf("%s: %v", dsn, err)
		}
		if !cfg.ParseTime {
			t.Errorf("%s: ParseTime not set", dsn)
		}
		if cfg.DBName != "litebans" || cfg.Addr != "db:3306" || cfg.User != "litebans" {
			t.Errorf("%s: parsed %+v", dsn, cfg)
		}
		if !strings.Contains(cfg.FormatDSN(), "parseTime=true") {
			t.Errorf("%s: formatted DSN %q lacks parseTime", dsn, cfg.FormatDSN())
		}
	}

	if _, err := mysqlConfig("not a dsn"); err == nil {
		t.Error("expected parse error")
	}
}

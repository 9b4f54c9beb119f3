package database

import (
	"testing"

	"github.com/MorseWayne/flash_sale/internal/config"
)

func TestBuildDSN(t *testing.T) {
	dsn := BuildDSN(config.DatabaseConfig{
		Host:     "db.local",
		Port:     3307,
		User:     "flash",
		Password: "secret",
		DBName:   "flash_sale",
	})

	expected := "flash:secret@tcp(db.local:3307)/flash_sale?charset=utf8mb4&parseTime=true&loc=Local"
	if dsn != expected {
		t.Errorf("Expected %s, got %s", expected, dsn)
	}
}

package migrate

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/tollwatch-backend/pkg/config"
	"github.com/angelmondragon/tollwatch-backend/pkg/db"
	"github.com/angelmondragon/tollwatch-backend/pkg/logger"
)

func openBareSQLite(t *testing.T) *db.Client {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:autorun?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db.Wrap(conn, config.DriverSQLite)
}

func TestMaybeRunDevSkipsOutsideDev(t *testing.T) {
	client := openBareSQLite(t)
	cfg := &config.Config{
		App: config.AppConfig{Env: config.AppEnvProd, AutoMigrate: true},
		DB:  config.DBConfig{Driver: config.DriverSQLite},
	}
	if err := MaybeRunDev(context.Background(), cfg, logger.Nop(), client); err != nil {
		t.Fatalf("MaybeRunDev: %v", err)
	}
	if client.DB().Migrator().HasTable("notifications") {
		t.Fatal("expected no tables outside dev")
	}
}

func TestMaybeRunDevMigratesSQLite(t *testing.T) {
	client := openBareSQLite(t)
	cfg := &config.Config{
		App: config.AppConfig{Env: config.AppEnvDev, AutoMigrate: true},
		DB:  config.DBConfig{Driver: config.DriverSQLite},
	}
	if err := MaybeRunDev(context.Background(), cfg, logger.Nop(), client); err != nil {
		t.Fatalf("MaybeRunDev: %v", err)
	}
	for _, table := range []string{"accounts", "toll_plazas", "notifications"} {
		if !client.DB().Migrator().HasTable(table) {
			t.Fatalf("expected table %s", table)
		}
	}
}

package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/partnerdesk/internal/audit/domain"
	crmdomain "github.com/smallbiznis/partnerdesk/internal/crm/domain"
	partnerdomain "github.com/smallbiznis/partnerdesk/internal/partner/domain"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations"

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&crmdomain.Partner{},
		&crmdomain.Client{},
		&crmdomain.Company{},
		&crmdomain.Case{},
		&crmdomain.PeriodSummary{},
		&crmdomain.PartnerInvoice{},
		&crmdomain.PartnerUser{},
		&crmdomain.PartnerExport{},
		&crmdomain.CompanySetting{},
		&partnerdomain.Interaction{},
		&auditdomain.AuditLog{},
	}
}

// Migrate brings the schema up to date. Postgres gets the versioned SQL
// files; other dialects fall back to gorm AutoMigrate.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() == "postgres" {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}
	return AutoMigrate(conn)
}

// AutoMigrate creates missing tables. Existing tables only gain missing
// columns and indexes: the sqlite migrator rebuilds a table to alter a column
// and rejects the numeric(p,s) DDL it generates for that.
func AutoMigrate(conn *gorm.DB) error {
	m := conn.Migrator()
	for _, model := range Models() {
		if !m.HasTable(model) {
			if err := conn.AutoMigrate(model); err != nil {
				return fmt.Errorf("auto migrate %T: %w", model, err)
			}
			continue
		}
		if err := extendTable(conn, model); err != nil {
			return fmt.Errorf("auto migrate %T: %w", model, err)
		}
	}
	return nil
}

func extendTable(conn *gorm.DB, model any) error {
	stmt := &gorm.Statement{DB: conn}
	if err := stmt.Parse(model); err != nil {
		return err
	}

	m := conn.Migrator()
	for _, field := range stmt.Schema.Fields {
		if field.DBName == "" || m.HasColumn(model, field.DBName) {
			continue
		}
		if err := m.AddColumn(model, field.DBName); err != nil {
			return fmt.Errorf("add column %s: %w", field.DBName, err)
		}
	}
	for _, idx := range stmt.Schema.ParseIndexes() {
		if m.HasIndex(model, idx.Name) {
			continue
		}
		if err := m.CreateIndex(model, idx.Name); err != nil {
			return fmt.Errorf("create index %s: %w", idx.Name, err)
		}
	}
	return nil
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}

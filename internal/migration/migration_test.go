package migration

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	crmdomain "github.com/smallbiznis/partnerdesk/internal/crm/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openSQLiteFile(t *testing.T, path string) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Positive(t, ups)
	assert.Equal(t, ups, downs)
}

func TestMigrateSQLiteCreatesUniqueIndexes(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(conn))
	require.NoError(t, Migrate(conn), "migrate must be re-runnable")

	for _, table := range []string{"partenaires", "dossiers", "entreprises", "partner_period_ca", "partner_invoices", "partner_interactions", "audit_logs", "company_settings"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
	assert.True(t, conn.Migrator().HasIndex("partner_invoices", "ux_partner_invoices_period"))
	assert.True(t, conn.Migrator().HasIndex("partner_period_ca", "ux_partner_period_ca"))
}

func TestMigrateSQLiteFileSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partnerdesk.db")

	first := openSQLiteFile(t, path)
	require.NoError(t, Migrate(first))
	commission := decimal.RequireFromString("42.50")
	require.NoError(t, first.Create(&crmdomain.Case{
		ClientID:          1,
		CompanyID:         1,
		PartnerID:         1,
		CreatedOn:         time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		PartnerCommission: &commission,
	}).Error)
	sqlDB, err := first.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	second := openSQLiteFile(t, path)
	require.NoError(t, Migrate(second))

	var stored crmdomain.Case
	require.NoError(t, second.First(&stored).Error)
	require.NotNil(t, stored.PartnerCommission)
	assert.Equal(t, "42.5", stored.PartnerCommission.String())
}

func TestMigrateSQLiteAddsMissingColumnsAndIndexes(t *testing.T) {
	conn := openSQLiteFile(t, filepath.Join(t.TempDir(), "legacy.db"))
	require.NoError(t, conn.Exec(`CREATE TABLE partner_invoices (
		id varchar(64) PRIMARY KEY,
		partenaire_id integer NOT NULL,
		periode varchar(7) NOT NULL,
		montant numeric NOT NULL DEFAULT 0,
		date date,
		echeance date,
		statut varchar(16) NOT NULL,
		created_at datetime,
		updated_at datetime
	)`).Error)

	require.NoError(t, Migrate(conn))

	assert.True(t, conn.Migrator().HasColumn(&crmdomain.PartnerInvoice{}, "pdf"))
	assert.True(t, conn.Migrator().HasIndex(&crmdomain.PartnerInvoice{}, "ux_partner_invoices_period"))
}

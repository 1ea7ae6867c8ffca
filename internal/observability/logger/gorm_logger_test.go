package logger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestOperationFromSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT taux_commission FROM partenaires WHERE id = $1":             "SELECT",
		"  insert into partner_period_ca (partenaire_id) values (1)":         "INSERT",
		"WITH paid AS (SELECT 1) UPDATE partner_invoices SET montant = 1":   "SELECT",
		"(DELETE FROM audit_logs)":                                           "DELETE",
		"":                                                                   "UNKNOWN",
		"VACUUM":                                                             "UNKNOWN",
	}
	for sql, want := range cases {
		assert.Equal(t, want, operationFromSQL(sql), sql)
	}
}

func TestGormLoggerTraceLogsErrorsWithoutParams(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(GormLoggerConfig{Level: gormlogger.Warn, SlowThreshold: time.Second}, zap.New(core))

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "UPDATE partner_invoices SET montant = ? WHERE id = ?", 0
	}, assert.AnError)

	entries := logs.FilterMessage("gorm.query").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "UPDATE", entries[0].ContextMap()["operation"])
	}

	sql, params := l.ParamsFilter(context.Background(), "SELECT ?", "secret")
	assert.Equal(t, "SELECT ?", sql)
	assert.Nil(t, params)
}

func TestGormLoggerSilentSkipsTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(DefaultGormLoggerConfig(), zap.New(core)).LogMode(gormlogger.Silent)

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, assert.AnError)
	assert.Zero(t, logs.Len())
}

package logger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "LOCK", operationFromSQL(`SELECT * FROM "tbl_products" WHERE id = 1 FOR UPDATE`))
	assert.Equal(t, "SELECT", operationFromSQL(`SELECT count(*) FROM tbl_order`))
	assert.Equal(t, "UPDATE", operationFromSQL(`UPDATE tbl_products SET stock_quantity = stock_quantity - 1`))
	assert.Equal(t, "INSERT", operationFromSQL(`WITH x AS (SELECT 1) INSERT INTO tbl_bin VALUES (1)`))
	assert.Equal(t, "UPDATE", operationFromSQL(`WITH moved AS (SELECT id FROM tbl_bin WHERE (quantity > 0)) UPDATE tbl_bin SET quantity = 0`))
	assert.Equal(t, "DELETE", operationFromSQL(`with a as (select 1), b as (select (2)) delete from tbl_order_lines`))
	assert.Equal(t, "INSERT", operationFromSQL(`INSERT INTO tbl_audit (note) VALUES ('SELECT (')`))
	assert.Equal(t, "LOCK", operationFromSQL(`WITH s AS (SELECT 1) SELECT * FROM tbl_order_sequence FOR UPDATE`))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}

func TestTableFromSQL(t *testing.T) {
	assert.Equal(t, "tbl_products", tableFromSQL(`SELECT * FROM "tbl_products" WHERE id = 1`))
	assert.Equal(t, "tbl_bin", tableFromSQL(`INSERT INTO tbl_bin (category_id) VALUES (1)`))
	assert.Equal(t, "", tableFromSQL(`SELECT 1`))
}

func TestTraceLevel(t *testing.T) {
	l := NewGormLogger(DefaultGormLoggerConfig())

	level, ok := l.traceLevel("SELECT", time.Millisecond, errors.New("connection reset"))
	assert.True(t, ok)
	assert.Equal(t, zapcore.ErrorLevel, level)

	_, ok = l.traceLevel("SELECT", time.Millisecond, gormlogger.ErrRecordNotFound)
	assert.False(t, ok)

	level, ok = l.traceLevel("LOCK", 80*time.Millisecond, nil)
	assert.True(t, ok)
	assert.Equal(t, zapcore.WarnLevel, level)

	_, ok = l.traceLevel("SELECT", 80*time.Millisecond, nil)
	assert.False(t, ok)

	verbose := l.LogMode(gormlogger.Info).(*GormLogger)
	level, ok = verbose.traceLevel("SELECT", time.Millisecond, nil)
	assert.True(t, ok)
	assert.Equal(t, zapcore.DebugLevel, level)
}

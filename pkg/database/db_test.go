package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type uniqueRow struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"uniqueIndex"`
}

func TestOpenSQLiteTranslatesUniqueViolations(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "unique.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&uniqueRow{}))
	require.NoError(t, db.Create(&uniqueRow{Code: "x"}).Error)

	err = db.Create(&uniqueRow{Code: "x"}).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "idx" (SQLSTATE 23505)`)))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mongo", "", "")
	assert.Error(t, err)
}

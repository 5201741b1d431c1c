package db

import (
	"regexp"
	"testing"

	"restaurant_reviews/internal/config"
	"restaurant_reviews/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestDialectorSelectsDriver(t *testing.T) {
	for _, driver := range []string{config.DriverMySQL, config.DriverPostgres, config.DriverSQLite} {
		d, err := Dialector(&config.Config{DBDriver: driver, DBPath: "x.db"})
		require.NoError(t, err, driver)
		assert.Equal(t, driver, d.Name())
	}

	_, err := Dialector(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestOpenInMemoryMigratesSchema(t *testing.T) {
	gdb, err := OpenInMemory()
	require.NoError(t, err)

	for _, m := range Models {
		assert.True(t, gdb.Migrator().HasTable(m))
	}
	assert.True(t, gdb.Migrator().HasColumn(&domain.Restaurant{}, "average_rating"))
	assert.True(t, gdb.Migrator().HasIndex(&domain.User{}, "Email"))
}

func TestMySQLEmailColumnUsesBinaryCollation(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	gdb, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(caseSensitiveEmailDDL)).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, enforceCaseSensitiveEmail(gdb))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailUniquenessIsCaseSensitive(t *testing.T) {
	gdb, err := OpenInMemory()
	require.NoError(t, err)
	require.NoError(t, enforceCaseSensitiveEmail(gdb))

	require.NoError(t, gdb.Create(&domain.User{Name: "Ada", Email: "ada@example.com", Password: "x"}).Error)
	require.NoError(t, gdb.Create(&domain.User{Name: "Ada", Email: "Ada@Example.com", Password: "x"}).Error)

	var n int64
	require.NoError(t, gdb.Model(&domain.User{}).Where("email = ?", "ADA@EXAMPLE.COM").Count(&n).Error)
	assert.Zero(t, n)
}

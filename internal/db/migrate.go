package db

import (
	"restaurant_reviews/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// Models lists every table owned by the service, parents first
var Models = []any{&domain.User{}, &domain.Restaurant{}, &domain.Review{}}

// Migrate performs automatic migration for the database schema
func Migrate(gdb *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := gdb.AutoMigrate(Models...); err != nil {
		logrus.WithError(err).Error("Migration failed")
		return err
	}
	if err := enforceCaseSensitiveEmail(gdb); err != nil {
		logrus.WithError(err).Error("Email collation update failed")
		return err
	}
	logrus.Info("Migration completed.")
	return nil
}

// caseSensitiveEmailDDL gives users.email a binary collation so that lookups
// and the unique index distinguish letter case on MySQL
const caseSensitiveEmailDDL = "ALTER TABLE `users` MODIFY `email` varchar(255) NOT NULL COLLATE utf8mb4_bin"

// enforceCaseSensitiveEmail is a no-op on PostgreSQL and SQLite, whose default
// collations already compare bytes
func enforceCaseSensitiveEmail(gdb *gorm.DB) error {
	if gdb.Dialector.Name() != "mysql" {
		return nil
	}
	return gdb.Exec(caseSensitiveEmailDDL).Error
}

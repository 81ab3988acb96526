package database

import (
	"fmt"

	"gorm.io/gorm"
)

// EnsureTables creates the table of each model that does not exist yet.
// Existing tables are never altered.
func EnsureTables(db *gorm.DB, models ...interface{}) error {
	m := db.Migrator()
	for _, model := range models {
		if m.HasTable(model) {
			continue
		}
		if err := m.CreateTable(model); err != nil {
			// Another process may have created it between the check and the create.
			if m.HasTable(model) {
				continue
			}
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

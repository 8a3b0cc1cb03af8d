package database

import (
	"fmt"

	"institution-manager/config"
	"institution-manager/database/seeders"
	"institution-manager/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Connect opens the PostgreSQL connection without touching the schema.
func Connect(cfg config.Database) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return nil, err
	}
	logger.Success("Successfully connected to the database")
	return db, nil
}

// InitDB connects to PostgreSQL and brings the schema up to date.
func InitDB(cfg config.Database) (*gorm.DB, error) {
	db, err := Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate applies pending schema operations, constraints, indexes and seeds.
// Every step checks what already exists, so it is safe on a partially provisioned database.
func Migrate(db *gorm.DB) error {
	migrator := NewDynamicMigrator(db)

	operations, err := migrator.DetectChanges()
	if err != nil {
		logger.Error("Failed to detect schema changes", err)
		return err
	}

	if err := migrator.ExecuteMigrations(operations); err != nil {
		logger.Error("Failed to execute migrations", err)
		return err
	}
	logger.Success("All dynamic migrations completed successfully")

	if db.Dialector.Name() == "postgres" {
		createForeignKeyConstraints(db)
	}

	if err := createIndexes(db); err != nil {
		logger.Error("Failed to create indexes", err)
		return err
	}

	if err := seeders.SeedRoles(db); err != nil {
		logger.Error("Failed to seed roles", err)
		return err
	}
	return nil
}

// LockForUpdate reads the next row with intent to write. SQLite has no row
// locks and serializes writers on its own, so the clause is only added on PostgreSQL.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// createIndexes creates composite indexes the model tags do not declare, and
// the value pair indexes for tables created before they were unique
func createIndexes(db *gorm.DB) error {
	indexes := []struct {
		name string
		sql  string
	}{
		{"activity window", "CREATE INDEX IF NOT EXISTS idx_activities_window ON activities(start_time, end_time)"},
		{"space booking lookup", "CREATE INDEX IF NOT EXISTS idx_space_bookings_space_status ON space_bookings(space_id, status)"},
		{"stock booking lookup", "CREATE INDEX IF NOT EXISTS idx_stock_bookings_item_status ON stock_bookings(item_id, status)"},
		{"ticket queue status", "CREATE INDEX IF NOT EXISTS idx_tickets_queue_status ON tickets(current_queue_id, status)"},
		{"movement log timeline", "CREATE INDEX IF NOT EXISTS idx_ticket_movement_log_timeline ON ticket_movement_log(ticket_id, timestamp)"},
		{"activity field values", "CREATE UNIQUE INDEX IF NOT EXISTS idx_activity_field_values_pair ON activity_field_values(activity_id, field_id)"},
		{"ticket field values", "CREATE UNIQUE INDEX IF NOT EXISTS idx_ticket_field_values_pair ON ticket_field_values(ticket_id, field_id)"},
		{"space field values", "CREATE UNIQUE INDEX IF NOT EXISTS idx_space_field_values_pair ON space_field_values(space_id, field_id)"},
		{"log created_at", "CREATE INDEX IF NOT EXISTS idx_logs_created_at ON logs(created_at)"},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			return fmt.Errorf("failed to create %s index: %w", idx.name, err)
		}
	}
	return nil
}

// createForeignKeyConstraints adds constraints after migration. Failures are
// logged and skipped so an existing database with stray rows still boots.
func createForeignKeyConstraints(db *gorm.DB) {
	constraints := []struct {
		name string
		sql  string
	}{
		{"fk_spaces_building", `ALTER TABLE spaces ADD CONSTRAINT fk_spaces_building
			FOREIGN KEY (building_id) REFERENCES buildings(id) ON UPDATE CASCADE ON DELETE RESTRICT`},
		{"fk_spaces_space_type", `ALTER TABLE spaces ADD CONSTRAINT fk_spaces_space_type
			FOREIGN KEY (space_type_id) REFERENCES space_types(id) ON UPDATE CASCADE ON DELETE SET NULL`},
		{"fk_spaces_template", `ALTER TABLE spaces ADD CONSTRAINT fk_spaces_template
			FOREIGN KEY (space_template_id) REFERENCES space_templates(id) ON UPDATE CASCADE ON DELETE SET NULL`},
		{"fk_stock_items_category", `ALTER TABLE stock_items ADD CONSTRAINT fk_stock_items_category
			FOREIGN KEY (category_id) REFERENCES stock_categories(id) ON UPDATE CASCADE ON DELETE RESTRICT`},
		{"fk_stock_items_type", `ALTER TABLE stock_items ADD CONSTRAINT fk_stock_items_type
			FOREIGN KEY (stock_type_id) REFERENCES stock_types(id) ON UPDATE CASCADE ON DELETE SET NULL`},
		{"fk_activities_category", `ALTER TABLE activities ADD CONSTRAINT fk_activities_category
			FOREIGN KEY (category_id) REFERENCES activity_categories(id) ON UPDATE CASCADE ON DELETE RESTRICT`},
		{"fk_activities_type", `ALTER TABLE activities ADD CONSTRAINT fk_activities_type
			FOREIGN KEY (activity_type_id) REFERENCES activity_types(id) ON UPDATE CASCADE ON DELETE SET NULL`},
		{"fk_space_bookings_activity", `ALTER TABLE space_bookings ADD CONSTRAINT fk_space_bookings_activity
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON UPDATE CASCADE ON DELETE RESTRICT`},
		{"fk_space_bookings_space", `ALTER TABLE space_bookings ADD CONSTRAINT fk_space_bookings_space
			FOREIGN KEY (space_id) REFERENCES spaces(id) ON UPDATE CASCADE ON DELETE RESTRICT`},
		{"fk_stock_bookings_activity", `ALTER TABLE stock_bookings ADD CONSTRAINT fk_stock_bookings_activity
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON UPDATE CASCADE ON DELETE RESTRICT`},
		{"fk_stock_bookings_item", `ALTER TABLE stock_bookings ADD CONSTRAINT fk_stock_bookings_item
			FOREIGN KEY (item_id) REFERENCES stock_items(id) ON UPDATE CASCADE ON DELETE RESTRICT`},
		{"fk_activity_field_values_field", `ALTER TABLE activity_field_values ADD CONSTRAINT fk_activity_field_values_field
			FOREIGN KEY (field_id) REFERENCES activity_type_fields(id) ON UPDATE CASCADE ON DELETE CASCADE`},
		{"fk_ticket_field_values_field", `ALTER TABLE ticket_field_values ADD CONSTRAINT fk_ticket_field_values_field
			FOREIGN KEY (field_id) REFERENCES ticket_type_fields(id) ON UPDATE CASCADE ON DELETE CASCADE`},
		{"fk_space_field_values_field", `ALTER TABLE space_field_values ADD CONSTRAINT fk_space_field_values_field
			FOREIGN KEY (field_id) REFERENCES space_template_fields(id) ON UPDATE CASCADE ON DELETE CASCADE`},
		{"fk_tickets_client", `ALTER TABLE tickets ADD CONSTRAINT fk_tickets_client
			FOREIGN KEY (client_user_id) REFERENCES users(id) ON UPDATE CASCADE ON DELETE RESTRICT`},
		{"fk_tickets_queue", `ALTER TABLE tickets ADD CONSTRAINT fk_tickets_queue
			FOREIGN KEY (current_queue_id) REFERENCES queues(id) ON UPDATE CASCADE ON DELETE SET NULL`},
		{"fk_tickets_type", `ALTER TABLE tickets ADD CONSTRAINT fk_tickets_type
			FOREIGN KEY (ticket_type_id) REFERENCES ticket_types(id) ON UPDATE CASCADE ON DELETE SET NULL`},
		{"fk_ticket_movement_log_ticket", `ALTER TABLE ticket_movement_log ADD CONSTRAINT fk_ticket_movement_log_ticket
			FOREIGN KEY (ticket_id) REFERENCES tickets(id) ON UPDATE CASCADE ON DELETE RESTRICT`},
		{"fk_agent_assignments_queue", `ALTER TABLE agent_assignments ADD CONSTRAINT fk_agent_assignments_queue
			FOREIGN KEY (queue_id) REFERENCES queues(id) ON UPDATE CASCADE ON DELETE CASCADE`},
		{"fk_queue_permissions_queue", `ALTER TABLE queue_permissions ADD CONSTRAINT fk_queue_permissions_queue
			FOREIGN KEY (queue_id) REFERENCES queues(id) ON UPDATE CASCADE ON DELETE CASCADE`},
	}

	for _, constraint := range constraints {
		var exists bool
		checkSQL := `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.table_constraints
				WHERE constraint_name = $1
			)
		`

		if err := db.Raw(checkSQL, constraint.name).Scan(&exists).Error; err != nil {
			logger.Warning(fmt.Sprintf("Failed to check constraint existence: %s - Error: %v", constraint.name, err))
			continue
		}

		if exists {
			logger.Debug(fmt.Sprintf("Constraint already exists: %s", constraint.name))
			continue
		}
		if err := db.Exec(constraint.sql).Error; err != nil {
			logger.Warning(fmt.Sprintf("Failed to create constraint: %s - Error: %v", constraint.name, err))
		} else {
			logger.Success(fmt.Sprintf("Successfully created constraint: %s", constraint.name))
		}
	}
}

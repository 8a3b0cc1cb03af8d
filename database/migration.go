package database

import (
	"fmt"
	"os"
	"strings"
	"time"

	"institution-manager/logger"
	"institution-manager/models/activity"
	"institution-manager/models/log"
	"institution-manager/models/logistics"
	"institution-manager/models/queue"
	"institution-manager/models/ticket"
	"institution-manager/models/user"

	"gorm.io/gorm"
)

// ModelInfo represents information about a database model
type ModelInfo struct {
	TableName string
	Model     interface{}
	Stage     int
}

// MigrationOperation represents one planned schema change
type MigrationOperation struct {
	Type        string // "create_table" or "add_column"
	TableName   string
	ColumnName  string
	Description string

	apply func(tx *gorm.DB) error
}

// DynamicMigrator plans and applies additive schema changes. It never drops
// or rewrites columns; it only fills in what is missing.
type DynamicMigrator struct {
	db     *gorm.DB
	models []ModelInfo
}

// NewDynamicMigrator creates a new dynamic migrator instance
func NewDynamicMigrator(db *gorm.DB) *DynamicMigrator {
	return &DynamicMigrator{
		db:     db,
		models: registeredModels(db),
	}
}

// stages lists models in dependency order so referenced tables come first
func stages() [][]interface{} {
	return [][]interface{}{
		// Stage 1: identity and routing
		{&user.User{}, &user.Role{}, &user.UserRole{}, &user.Group{}, &user.UserGroup{},
			&queue.Queue{}, &queue.QueuePermission{}, &queue.AgentAssignment{}},
		// Stage 2: logistics
		{&logistics.Building{}, &logistics.SpaceType{}, &logistics.SpaceTemplate{}, &logistics.SpaceTemplateField{},
			&logistics.Space{}, &logistics.SpaceFieldValue{},
			&logistics.StockCategory{}, &logistics.StockType{}, &logistics.StockItem{}},
		// Stage 3: activities and bookings
		{&activity.ActivityCategory{}, &activity.ActivityType{}, &activity.ActivityTypeField{},
			&activity.Activity{}, &activity.ActivityFieldValue{},
			&activity.SpaceBooking{}, &activity.StockBooking{}},
		// Stage 4: tickets
		{&ticket.TicketType{}, &ticket.TicketTypeAllowedGroup{}, &ticket.TicketTypeField{},
			&ticket.Ticket{}, &ticket.TicketFieldValue{}, &ticket.TicketComment{},
			&ticket.MovementLog{}, &ticket.Attachment{}},
		// Stage 5: request logging
		{&log.Log{}},
	}
}

func registeredModels(db *gorm.DB) []ModelInfo {
	var infos []ModelInfo
	for i, stage := range stages() {
		for _, model := range stage {
			stmt := &gorm.Statement{DB: db}
			tableName := ""
			if err := stmt.Parse(model); err == nil {
				tableName = stmt.Schema.Table
			}
			infos = append(infos, ModelInfo{TableName: tableName, Model: model, Stage: i + 1})
		}
	}
	return infos
}

// DetectChanges compares registered models with the live schema.
func (dm *DynamicMigrator) DetectChanges() ([]MigrationOperation, error) {
	var operations []MigrationOperation

	logger.Info("🔍 Starting dynamic migration analysis...")

	for _, modelInfo := range dm.models {
		tableOps, err := dm.analyzeTable(modelInfo)
		if err != nil {
			return nil, fmt.Errorf("failed to analyze table %s: %w", modelInfo.TableName, err)
		}
		operations = append(operations, tableOps...)
	}

	logger.Info(fmt.Sprintf("📊 Detected %d migration operations", len(operations)))
	return operations, nil
}

func (dm *DynamicMigrator) analyzeTable(modelInfo ModelInfo) ([]MigrationOperation, error) {
	model := modelInfo.Model
	migrator := dm.db.Migrator()

	if !migrator.HasTable(model) {
		return []MigrationOperation{{
			Type:        "create_table",
			TableName:   modelInfo.TableName,
			Description: fmt.Sprintf("Create table %s (stage %d)", modelInfo.TableName, modelInfo.Stage),
			apply: func(tx *gorm.DB) error {
				return tx.Migrator().CreateTable(model)
			},
		}}, nil
	}

	stmt := &gorm.Statement{DB: dm.db}
	if err := stmt.Parse(model); err != nil {
		return nil, err
	}

	var operations []MigrationOperation
	for _, field := range stmt.Schema.Fields {
		if field.DBName == "" || migrator.HasColumn(model, field.DBName) {
			continue
		}
		column := field.DBName
		operations = append(operations, MigrationOperation{
			Type:        "add_column",
			TableName:   modelInfo.TableName,
			ColumnName:  column,
			Description: fmt.Sprintf("Add column %s.%s", modelInfo.TableName, column),
			apply: func(tx *gorm.DB) error {
				return tx.Migrator().AddColumn(model, column)
			},
		})
	}
	return operations, nil
}

// ExecuteMigrations applies operations in one transaction.
func (dm *DynamicMigrator) ExecuteMigrations(operations []MigrationOperation) error {
	if len(operations) == 0 {
		logger.Success("No migrations needed - database is up to date")
		return nil
	}

	logger.Info(fmt.Sprintf("🚀 Executing %d migration operations...", len(operations)))

	return dm.db.Transaction(func(tx *gorm.DB) error {
		for i, op := range operations {
			logger.Debug(fmt.Sprintf("[%d/%d] %s", i+1, len(operations), op.Description))

			if err := op.apply(tx); err != nil {
				logger.Error(fmt.Sprintf("Failed to execute migration: %s", op.Description), err)
				return err
			}
		}
		return nil
	})
}

// Plan renders operations as a reviewable text file body.
func Plan(operations []MigrationOperation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- Migration plan generated on %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "-- %d operations detected\n\n", len(operations))
	for i, op := range operations {
		fmt.Fprintf(&b, "-- [%d] %s\n", i+1, op.Description)
	}
	return b.String()
}

// GenerateMigrationFile writes the pending plan without applying it.
func GenerateMigrationFile(db *gorm.DB, filename string) error {
	operations, err := NewDynamicMigrator(db).DetectChanges()
	if err != nil {
		return fmt.Errorf("failed to detect changes: %w", err)
	}

	if len(operations) == 0 {
		logger.Success("No migrations needed - database is up to date")
		return nil
	}

	if err := os.WriteFile(filename, []byte(Plan(operations)), 0644); err != nil {
		return fmt.Errorf("failed to write migration file: %w", err)
	}

	logger.Success(fmt.Sprintf("Migration file generated: %s", filename))
	return nil
}

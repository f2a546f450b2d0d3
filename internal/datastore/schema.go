package datastore

import (
	"gorm.io/gorm"

	"github.com/jaja2302/Palm-counting-AI/internal/logger"
)

var createTableStatements = []string{
	`CREATE TABLE IF NOT EXISTS configuration (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		model TEXT,
		imgsz TEXT,
		iou TEXT,
		conf TEXT,
		convert_shp TEXT,
		convert_kml TEXT,
		max_det TEXT,
		line_width TEXT,
		show_labels TEXT,
		show_conf TEXT,
		status_blok TEXT,
		save_annotated TEXT,
		last_folder_path TEXT,
		device TEXT DEFAULT 'auto',
		active_model_id INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS yolo_models (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		created_at TEXT DEFAULT (datetime('now'))
	)`,
	`CREATE TABLE IF NOT EXISTS tiff_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT UNIQUE NOT NULL,
		created_at TEXT DEFAULT (datetime('now'))
	)`,
}

// columnMigration adds a column that older databases lack.
type columnMigration struct {
	table  string
	column string
	ddl    string
}

// columnMigrations are applied in order and are strictly additive.
var columnMigrations = []columnMigration{
	{"configuration", "device", "ALTER TABLE configuration ADD COLUMN device TEXT DEFAULT 'auto'"},
	{"configuration", "active_model_id", "ALTER TABLE configuration ADD COLUMN active_model_id INTEGER"},
}

func migrate(db *gorm.DB, log logger.Logger) error {
	for _, m := range columnMigrations {
		exists, err := hasColumn(db, m.table, m.column)
		if err != nil {
			return dbError(err, "inspect-schema", "table", m.table)
		}
		if exists {
			continue
		}
		if err := db.Exec(m.ddl).Error; err != nil {
			return dbError(err, "add-column", "table", m.table, "column", m.column)
		}
		log.Info("added column to legacy schema",
			logger.String("table", m.table),
			logger.String("column", m.column))
	}
	return nil
}

// hasColumn inspects the live table definition.
func hasColumn(db *gorm.DB, table, column string) (bool, error) {
	columns, err := db.Migrator().ColumnTypes(table)
	if err != nil {
		return false, err
	}
	for _, c := range columns {
		if c.Name() == column {
			return true, nil
		}
	}
	return false, nil
}

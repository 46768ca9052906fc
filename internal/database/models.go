package database

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisRun represents one completed economic appraisal in the database
type AnalysisRun struct {
	ID      uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	Project string    `gorm:"column:project;not null"`

	ENPV float64 `gorm:"column:enpv"`
	ERR  float64 `gorm:"column:err"`
	EBCR float64 `gorm:"column:ebcr"`

	CreatedAt time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for AnalysisRun
func (AnalysisRun) TableName() string {
	return "analysis_runs"
}

// LedgerEntry is one cell of a run's net ledger: the differential value of
// a category in one year
type LedgerEntry struct {
	ID       int       `gorm:"primaryKey;autoIncrement;column:id"`
	RunID    uuid.UUID `gorm:"column:run_id;type:uuid;index;not null"`
	Type     string    `gorm:"column:type;not null"` // benefit, cost or income
	Category string    `gorm:"column:category;not null"`
	Year     int       `gorm:"column:year;not null"`
	Value    float64   `gorm:"column:value"`
}

// TableName specifies the table name for LedgerEntry
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

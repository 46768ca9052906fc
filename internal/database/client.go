package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/google/uuid"
	"github.com/jkollar/roadcba/internal/log"
	"github.com/jkollar/roadcba/pkg/cba"
	"go.uber.org/zap"
)

// Client holds the connection to the appraisal results database
type Client struct {
	connectionString string
	DB               *gorm.DB // Exported so it can be accessed from other packages
	logger           *zap.SugaredLogger
}

// NewClient creates a new database client
func NewClient(connectionString string, logger *zap.SugaredLogger) *Client {
	return &Client{
		connectionString: connectionString,
		logger:           logger,
	}
}

// Connect connects to the results database and migrates the schema
func (c *Client) Connect() error {
	var err error

	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,        // Ignore ErrRecordNotFound error for logger
			Colorful:                  false,
		},
	)

	config := &gorm.Config{
		Logger: dbLogger,
	}

	log.Info("connecting to results database...")
	c.DB, err = gorm.Open(postgres.Open(c.connectionString), config)
	if err != nil {
		log.Warn("warning: unable to create a database connection:", err)
		return err
	}
	if err := c.DB.AutoMigrate(&AnalysisRun{}, &LedgerEntry{}); err != nil {
		return fmt.Errorf("error migrating results schema: %w", err)
	}
	log.Info("results database connection successful")

	return nil
}

// SaveRun stores one completed analysis with its indicators and the full
// net ledger.
func (c *Client) SaveRun(runID uuid.UUID, project string, a *cba.Analysis, ind cba.Indicators) error {
	run := AnalysisRun{
		ID:      runID,
		Project: project,
		ENPV:    ind.ENPV,
		ERR:     ind.ERR,
		EBCR:    ind.EBCR,
	}

	entries := ledgerEntries(runID, "benefit", a.Years(), a.NetBenefits())
	entries = append(entries, ledgerEntries(runID, "cost", a.Years(), a.NetCosts())...)
	entries = append(entries, ledgerEntries(runID, "income", a.Years(), a.NetIncomes())...)

	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("error storing analysis run: %w", err)
		}
		if err := tx.CreateInBatches(entries, 500).Error; err != nil {
			return fmt.Errorf("error storing net ledger: %w", err)
		}
		return nil
	})
}

// GetRun retrieves a stored analysis run by its ID.
func (c *Client) GetRun(runID uuid.UUID) (AnalysisRun, error) {
	var run AnalysisRun
	if err := c.DB.Where("id = ?", runID).First(&run).Error; err != nil {
		return AnalysisRun{}, fmt.Errorf("error querying analysis run: %w", err)
	}
	return run, nil
}

// GetLedger retrieves the stored net ledger of a run.
func (c *Client) GetLedger(runID uuid.UUID) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	if err := c.DB.Where("run_id = ?", runID).Order("type, category, year").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("error querying net ledger: %w", err)
	}
	return entries, nil
}

func ledgerEntries(runID uuid.UUID, typ string, years []int, series map[string][]float64) []LedgerEntry {
	var out []LedgerEntry
	for category, values := range series {
		for i, y := range years {
			out = append(out, LedgerEntry{
				RunID:    runID,
				Type:     typ,
				Category: category,
				Year:     y,
				Value:    values[i],
			})
		}
	}
	return out
}

// Package server exposes the appraisal engine over HTTP: project inputs
// are posted as YAML, results come back as JSON, and completed runs can be
// looked up when a results database is attached.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jkollar/roadcba/internal/database"
	"github.com/jkollar/roadcba/internal/log"
	"github.com/jkollar/roadcba/pkg/cba"
	"github.com/jkollar/roadcba/pkg/params"
)

// Config holds the server settings
type Config struct {
	ListenAddr string
	Port       int
}

// Controller represents the appraisal HTTP server
type Controller struct {
	ctx       context.Context
	wg        *sync.WaitGroup
	cfg       Config
	cbaConfig cba.Config
	paramSet  *params.Set
	Server    http.Server
	DB        *database.Client
	DBEnabled bool
	logger    *zap.SugaredLogger
	handlers  *Handlers
}

// NewController creates a new appraisal server controller. The parameter
// set is loaded once at startup; every request runs against the same
// methodology release. The database client may be nil.
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg Config, cbaConfig cba.Config, provider params.Provider, db *database.Client, logger *zap.SugaredLogger) (*Controller, error) {
	set, err := provider.LoadParameters()
	if err != nil {
		return nil, fmt.Errorf("error loading parameters: %v", err)
	}

	ctrl := &Controller{
		ctx:       ctx,
		wg:        wg,
		cfg:       cfg,
		cbaConfig: cbaConfig,
		paramSet:  set,
		DB:        db,
		DBEnabled: db != nil,
		logger:    logger,
	}
	ctrl.handlers = NewHandlers(ctrl)

	if cfg.ListenAddr == "" {
		logger.Info("server.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		cfg.ListenAddr = "0.0.0.0"
	}
	if cfg.Port == 0 {
		logger.Info("server.port not provided; defaulting to 8080")
		cfg.Port = 8080
	}

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", cfg.ListenAddr, cfg.Port)
	ctrl.Server.Handler = ctrl.setupRouter()

	return ctrl, nil
}

// StartController starts the appraisal server
func (c *Controller) StartController() error {
	log.Info("Starting appraisal server controller...")
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("appraisal server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the appraisal server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/health", c.handlers.GetHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/analyze", c.handlers.PostAnalyze).Methods(http.MethodPost)

	// Run lookups need the results database.
	if c.DBEnabled {
		router.HandleFunc("/api/runs/{id}", c.handlers.GetRun).Methods(http.MethodGet)
		router.HandleFunc("/api/runs/{id}/ledger", c.handlers.GetRunLedger).Methods(http.MethodGet)
	}

	return router
}

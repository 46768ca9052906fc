package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"github.com/jkollar/roadcba/internal/constants"
	"github.com/jkollar/roadcba/internal/database"
	"github.com/jkollar/roadcba/internal/log"
	"github.com/jkollar/roadcba/internal/server"
	"github.com/jkollar/roadcba/pkg/cba"
	"github.com/jkollar/roadcba/pkg/params"
)

func main() {
	paramsFile := flag.String("params", "parameters.yaml", "Path to the parameter source:\n\t\t\t  YAML: parameters.yaml\n\t\t\t  SQLite: parameters.db")
	paramsBackend := flag.String("params-backend", "yaml", "Parameter backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	projectFile := flag.String("project", "", "Path to the project inputs YAML (road sections, capex, traffic forecasts)")

	initYear := flag.Int("init-year", 2025, "First year of the evaluation period")
	period := flag.Int("period", 30, "Length of the evaluation period in years")
	priceLevel := flag.Int("price-level", 0, "Price level year for all values (defaults to the init year)")
	ecoRate := flag.Float64("eco-discount-rate", 0.05, "Economic discount rate")
	finRate := flag.Float64("fin-discount-rate", 0.04, "Financial discount rate")
	cpiSource := flag.String("cpi-source", "newest", "CPI forecast to use")
	gdpSource := flag.String("gdp-source", "newest", "GDP growth forecast to use")
	freightTime := flag.Bool("freight-time", false, "Include the value of freight time savings")

	serve := flag.Bool("serve", false, "Run as an HTTP service instead of a one-shot analysis")
	listenAddr := flag.String("listen", "0.0.0.0", "Listen address in service mode")
	port := flag.Int("port", 8080, "Listen port in service mode")
	resultsDB := flag.String("results-db", "", "PostgreSQL connection string for storing results (optional)")

	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("roadcba %s (%s)\n", constants.Version, constants.Methodology)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *priceLevel == 0 {
		*priceLevel = *initYear
	}
	cbaConfig := cba.Config{
		InitYear:           *initYear,
		EvaluationPeriod:   *period,
		PriceLevel:         *priceLevel,
		FinDiscountRate:    *finRate,
		EcoDiscountRate:    *ecoRate,
		Currency:           "eur",
		IncludeFreightTime: *freightTime,
		CPISource:          *cpiSource,
		GDPSource:          *gdpSource,
	}

	provider, err := loadProvider(*paramsFile, *paramsBackend)
	if err != nil {
		log.Errorf("Failed to load parameters: %v", err)
		os.Exit(1)
	}
	defer provider.Close()

	var db *database.Client
	if *resultsDB != "" {
		db = database.NewClient(*resultsDB, log.GetSugaredLogger())
		if err := db.Connect(); err != nil {
			log.Errorf("Failed to connect to the results database: %v", err)
			os.Exit(1)
		}
	}

	if *serve {
		runServer(cbaConfig, server.Config{ListenAddr: *listenAddr, Port: *port}, provider, db)
		return
	}

	if *projectFile == "" {
		log.Error("No project inputs given. Pass -project or run with -serve. Run with -h for help")
		os.Exit(1)
	}
	if err := runAnalysis(cbaConfig, provider, db, *projectFile); err != nil {
		log.Errorf("Analysis failed: %v", err)
		os.Exit(1)
	}
}

func loadProvider(paramsFile, backend string) (params.Provider, error) {
	filename, _ := filepath.Abs(paramsFile)

	switch backend {
	case "yaml":
		return params.NewYAMLProvider(filename), nil
	case "sqlite":
		provider, err := params.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported parameter backend: %s. Use 'yaml' or 'sqlite'", backend)
	}
}

// runAnalysis performs one appraisal and prints the indicators.
func runAnalysis(cfg cba.Config, provider params.Provider, db *database.Client, projectFile string) error {
	pi, err := params.LoadProjectInputs(projectFile)
	if err != nil {
		return err
	}

	a := cba.New(cfg, log.GetSugaredLogger())
	if err := a.RunCBA(provider); err != nil {
		return err
	}
	if err := a.ReadProjectInputs(pi); err != nil {
		return err
	}

	ind, err := a.PerformEconomicAnalysis()
	if err != nil {
		return err
	}

	runID := uuid.New()
	if db != nil {
		project := filepath.Base(projectFile)
		if err := db.SaveRun(runID, project, a, ind); err != nil {
			log.Warnf("Failed to store the analysis run: %v", err)
		}
	}

	fmt.Printf("run %s\n%s", runID, ind)
	return nil
}

// runServer starts the HTTP service and blocks until interrupted.
func runServer(cbaConfig cba.Config, srvConfig server.Config, provider params.Provider, db *database.Client) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg := &sync.WaitGroup{}
	ctrl, err := server.NewController(ctx, wg, srvConfig, cbaConfig, provider, db, log.GetSugaredLogger())
	if err != nil {
		log.Errorf("Failed to create the appraisal server: %v", err)
		os.Exit(1)
	}
	if err := ctrl.StartController(); err != nil {
		log.Errorf("Failed to start the appraisal server: %v", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	wg.Wait()
}

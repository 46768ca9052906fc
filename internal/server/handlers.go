package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gopkg.in/yaml.v2"

	"github.com/jkollar/roadcba/internal/constants"
	"github.com/jkollar/roadcba/pkg/cba"
	"github.com/jkollar/roadcba/pkg/params"
)

// Handlers holds all HTTP handlers for the appraisal server
type Handlers struct {
	controller *Controller
}

// NewHandlers creates the handler collection
func NewHandlers(c *Controller) *Handlers {
	return &Handlers{controller: c}
}

// AnalysisResponse is the JSON result of one appraisal run.
type AnalysisResponse struct {
	RunID     string            `json:"run_id"`
	ENPV      float64           `json:"enpv"`
	ERR       float64           `json:"err"`
	EBCR      float64           `json:"ebcr"`
	Breakdown []cba.CategoryNPV `json:"breakdown"`
}

// GetHealth reports the service version and methodology release.
func (h *Handlers) GetHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":      "ok",
		"version":     constants.Version,
		"methodology": constants.Methodology,
	})
}

// PostAnalyze runs one appraisal: the request body carries the project
// inputs as YAML, the response is the indicator set. When a results
// database is attached the run and its net ledger are stored.
func (h *Handlers) PostAnalyze(w http.ResponseWriter, r *http.Request) {
	c := h.controller

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "unable to read request body")
		return
	}

	var pi params.ProjectInputs
	if err := yaml.Unmarshal(body, &pi); err != nil {
		c.logger.Warnf("rejecting project inputs: %v", err)
		h.writeError(w, http.StatusBadRequest, "malformed project inputs: "+err.Error())
		return
	}

	a := cba.New(c.cbaConfig, c.logger)
	a.ReadParameters(c.paramSet)
	if err := a.PrepareParameters(); err != nil {
		c.logger.Errorf("parameter preparation failed: %v", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := a.ReadProjectInputs(&pi); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ind, err := a.PerformEconomicAnalysis()
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	runID := uuid.New()
	project := r.URL.Query().Get("project")
	if c.DBEnabled {
		if err := c.DB.SaveRun(runID, project, a, ind); err != nil {
			c.logger.Errorf("error storing analysis run %s: %v", runID, err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AnalysisResponse{
		RunID:     runID.String(),
		ENPV:      ind.ENPV,
		ERR:       ind.ERR,
		EBCR:      ind.EBCR,
		Breakdown: ind.Breakdown,
	})
}

// GetRun returns the stored indicators of one run.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := h.controller.DB.GetRun(runID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

// GetRunLedger returns the stored net ledger of one run.
func (h *Handlers) GetRunLedger(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	entries, err := h.controller.DB.GetLedger(runID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "ledger not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/hunt"
	"pairs-lab/internal/jobs"
	"pairs-lab/internal/observability"
	"pairs-lab/internal/reporting"
	"pairs-lab/internal/scan"
	"pairs-lab/internal/sizing"
	"pairs-lab/internal/storage"
)

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /status", s.handleStatus)
	if s.cfg.Metrics.Enabled {
		mux.Handle("GET "+s.cfg.Metrics.Path, observability.Handler())
	}

	mux.HandleFunc("POST /api/scans", s.handleStartScan)
	mux.HandleFunc("POST /api/hunts", s.handleStartHunt)

	mux.HandleFunc("GET /api/jobs/{id}", s.handleJobStatus)
	mux.HandleFunc("GET /api/jobs/{id}/log", s.handleJobLog)
	mux.HandleFunc("POST /api/jobs/{id}/decision", s.handleJobDecision)
	mux.HandleFunc("GET /api/jobs/{id}/ws", s.handleJobStream)

	mux.HandleFunc("GET /api/pairs", s.handleListPairs)
	mux.HandleFunc("GET /api/pairs/{id}", s.handleGetPair)
	mux.HandleFunc("DELETE /api/pairs/{id}", s.handleDeletePair)
	mux.HandleFunc("POST /api/pairs/{id}/window", s.handleChooseWindow)
	mux.HandleFunc("POST /api/pairs/{id}/grid", s.handleGridScan)
	mux.HandleFunc("GET /api/pairs/{id}/analysis", s.handleAnalysis)

	mux.HandleFunc("GET /api/users/{id}/config", s.handleGetUserConfig)
	mux.HandleFunc("PUT /api/users/{id}/config", s.handleSaveUserConfig)

	mux.HandleFunc("POST /api/sizing", s.handleSizing)
	mux.HandleFunc("GET /api/report", s.handleReport)

	return mux
}

// thresholdPatch is the per-request override layer of the scan parameters.
type thresholdPatch struct {
	Windows      []int    `json:"windows,omitempty"`
	BaseWindow   int      `json:"base_window,omitempty"`
	ADFMin       *float64 `json:"adf_min,omitempty"`
	ZScoreAbsMin *float64 `json:"zscore_abs_min,omitempty"`
	HalfLifeMax  *float64 `json:"half_life_max,omitempty"`
	BetaWindow   int      `json:"beta_window,omitempty"`
}

func (t *thresholdPatch) override() *scan.Override {
	if t == nil {
		return nil
	}
	return &scan.Override{
		Windows:      t.Windows,
		BaseWindow:   t.BaseWindow,
		ADFMin:       t.ADFMin,
		ZScoreAbsMin: t.ZScoreAbsMin,
		HalfLifeMax:  t.HalfLifeMax,
		BetaWindow:   t.BetaWindow,
	}
}

// resolveParams stacks the process, per-user and per-request layers.
func (s *Server) resolveParams(ctx context.Context, userID string, caller *scan.Override) scan.Params {
	var user *scan.Override
	if userID != "" {
		cfg, err := s.stores.configs.GetByUser(ctx, userID)
		if err == nil {
			user = scan.FromConfig(cfg)
		} else if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Err(err).Str("user", userID).Msg("load user config")
		}
	}
	return scan.ResolveParams(s.processOverride, user, caller)
}

type scanRequest struct {
	UserID         string          `json:"user_id"`
	Source         string          `json:"source"` // "assets" (default) or "existing_pairs"
	Window         int             `json:"window"`
	MaxInstruments int             `json:"max_instruments"`
	Thresholds     *thresholdPatch `json:"thresholds"`
}

type jobResponse struct {
	JobID string `json:"job_id"`
}

// handleStartScan launches a job-backed universe base build.
func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	params := s.resolveParams(r.Context(), req.UserID, req.Thresholds.override())
	window := params.BaseWindow
	if req.Window > 0 {
		window = req.Window
	}
	source := domain.HuntSource(req.Source)
	if source == "" {
		source = domain.SourceAssets
	}
	if source != domain.SourceAssets && source != domain.SourceExistingPairs {
		writeError(w, http.StatusBadRequest, "unknown source")
		return
	}

	jobID, err := s.runner.Start(context.Background(), "scan", func(ctx context.Context, jobID string, emit func(jobs.Event)) error {
		start := time.Now()
		var err error
		if source == domain.SourceExistingPairs {
			_, err = s.scanner.RefreshExistingPairs(ctx, window, params.Thresholds, emit)
		} else {
			_, err = s.scanner.BuildUniverseBase(ctx, scan.BaseBuildOptions{
				Window:         window,
				MaxInstruments: req.MaxInstruments,
				Thresholds:     params.Thresholds,
				Progress:       emit,
			})
		}
		status := "success"
		if err != nil {
			status = "error"
		} else {
			observability.DefaultMetrics.LastSuccessfulScan.Set(float64(time.Now().Unix()))
		}
		observability.RecordScanRun(string(source), status, time.Since(start).Seconds())
		return err
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "start job: "+err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, jobResponse{JobID: jobID})
}

type huntRequest struct {
	UserID         string          `json:"user_id"`
	Source         string          `json:"source"`
	Windows        []int           `json:"windows"`
	MaxInstruments int             `json:"max_instruments"`
	Interactive    bool            `json:"interactive"`
	Thresholds     *thresholdPatch `json:"thresholds"`
}

// handleStartHunt launches a descending-window hunt job. Interactive hunts
// pause at each window boundary until a decision arrives.
func (s *Server) handleStartHunt(w http.ResponseWriter, r *http.Request) {
	var req huntRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	source := domain.HuntSource(req.Source)
	if source == "" {
		source = domain.SourceAssets
	}
	if source != domain.SourceAssets && source != domain.SourceExistingPairs {
		writeError(w, http.StatusBadRequest, "unknown source")
		return
	}

	jobID, err := s.runner.Start(context.Background(), "hunt", func(ctx context.Context, jobID string, emit func(jobs.Event)) error {
		opts := hunt.Options{
			Windows:        req.Windows,
			Source:         source,
			UserID:         req.UserID,
			MaxInstruments: req.MaxInstruments,
			Thresholds:     req.Thresholds.override(),
			Progress:       emit,
		}
		if req.Interactive {
			opts.Gate = &hunt.GatewayGate{GW: s.gateway, JobID: jobID}
		}

		start := time.Now()
		result, err := s.hunter.Run(ctx, opts)
		if err != nil {
			observability.RecordHuntRun("error", time.Since(start).Seconds(), 0)
			return err
		}
		outcome := "not_found"
		if result.Found {
			outcome = "found"
			observability.DefaultMetrics.LastSuccessfulHunt.Set(float64(time.Now().Unix()))
		}
		observability.RecordHuntRun(outcome, time.Since(start).Seconds(), len(result.ScannedWindows))
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "start job: "+err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, jobResponse{JobID: jobID})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := s.gateway.Fetch(r.Context(), r.PathValue("id"))
	if errors.Is(err, jobs.ErrUnknownJob) {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleJobLog(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if _, err := s.gateway.Fetch(r.Context(), jobID); errors.Is(err, jobs.ErrUnknownJob) {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}
	events, err := s.gateway.Log(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "events": events})
}

type decisionRequest struct {
	Decision jobs.Decision `json:"decision"`
}

func (s *Server) handleJobDecision(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Decision != jobs.DecisionContinue && req.Decision != jobs.DecisionCancel {
		writeError(w, http.StatusBadRequest, "decision must be continue or cancel")
		return
	}

	if _, err := s.gateway.Fetch(r.Context(), jobID); errors.Is(err, jobs.ErrUnknownJob) {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}
	if err := s.gateway.SetDecision(r.Context(), jobID, req.Decision); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Status streaming is read-only; cross-origin dashboards are fine.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleJobStream pushes status records over a websocket until the job
// reaches a terminal state.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if _, err := s.gateway.Fetch(r.Context(), jobID); errors.Is(err, jobs.ErrUnknownJob) {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastUpdated time.Time
	for {
		rec, err := s.gateway.Fetch(r.Context(), jobID)
		if err != nil {
			return
		}
		if rec.UpdatedAt.After(lastUpdated) {
			lastUpdated = rec.UpdatedAt
			if err := conn.WriteJSON(rec); err != nil {
				return
			}
		}
		if rec.State == jobs.StateDone || rec.State == jobs.StateError {
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) handleListPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.stores.pairs.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pairs": pairs})
}

func (s *Server) handleGetPair(w http.ResponseWriter, r *http.Request) {
	p, err := s.stores.pairs.GetByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown pair")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePair(w http.ResponseWriter, r *http.Request) {
	err := s.stores.pairs.Delete(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown pair")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type chooseWindowRequest struct {
	Window int `json:"window"`
}

func (s *Server) handleChooseWindow(w http.ResponseWriter, r *http.Request) {
	var req chooseWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Window <= 0 {
		writeError(w, http.StatusBadRequest, "window must be a positive integer")
		return
	}

	err := s.stores.pairs.SetChosenWindow(r.Context(), r.PathValue("id"), req.Window)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown pair")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type gridRequest struct {
	UserID     string          `json:"user_id"`
	Windows    []int           `json:"windows"`
	Thresholds *thresholdPatch `json:"thresholds"`
}

// handleGridScan runs a multi-window grid for one pair synchronously.
func (s *Server) handleGridScan(w http.ResponseWriter, r *http.Request) {
	var req gridRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	params := s.resolveParams(r.Context(), req.UserID, req.Thresholds.override())
	windows := req.Windows
	if len(windows) == 0 {
		windows = params.Windows
	}

	grid, err := s.scanner.ScanPairWindows(r.Context(), r.PathValue("id"), windows, params.Thresholds)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown pair")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

// handleAnalysis returns the chart series of a pair at one window.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	p, err := s.stores.pairs.GetByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown pair")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	params := s.resolveParams(r.Context(), r.URL.Query().Get("user_id"), nil)
	window := params.BaseWindow
	if p.ChosenWindow != nil {
		window = *p.ChosenWindow
	}
	if v := r.URL.Query().Get("window"); v != "" {
		window, err = strconv.Atoi(v)
		if err != nil || window <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive integer")
			return
		}
	}
	betaWindow := params.BetaWindow
	if v := r.URL.Query().Get("beta_window"); v != "" {
		betaWindow, err = strconv.Atoi(v)
		if err != nil || betaWindow <= 0 {
			writeError(w, http.StatusBadRequest, "beta_window must be a positive integer")
			return
		}
	}

	series, err := s.engine.ComputeAnalysisSeries(r.Context(), p.Left, p.Right, window, betaWindow)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pair_id": p.PairID, "series": series})
}

type sizingRequest struct {
	ShortPrice      float64  `json:"short_price"`
	LongPrice       float64  `json:"long_price"`
	SellCap         float64  `json:"sell_cap"`
	LotSize         int      `json:"lot_size"`
	ShortTicker     string   `json:"short_ticker"`
	LongTicker      string   `json:"long_ticker"`
	InformedCapital *float64 `json:"informed_capital"`
}

func (s *Server) handleGetUserConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.stores.configs.GetByUser(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no configuration for user")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSaveUserConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.MetricsConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	cfg.UserID = r.PathValue("id")
	if err := s.stores.configs.Save(r.Context(), &cfg); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, &cfg)
}

// handleSizing sizes the two legs of a long/short operation.
func (s *Server) handleSizing(w http.ResponseWriter, r *http.Request) {
	var req sizingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	result, err := sizing.Proportion(sizing.Input{
		ShortPrice:      req.ShortPrice,
		LongPrice:       req.LongPrice,
		SellCap:         req.SellCap,
		LotSize:         req.LotSize,
		ShortTicker:     req.ShortTicker,
		LongTicker:      req.LongTicker,
		InformedCapital: req.InformedCapital,
	})
	if errors.Is(err, storage.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, "prices and lot size must be positive")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result == nil {
		writeError(w, http.StatusUnprocessableEntity, "capital below one short lot")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleReport renders the universe report as json, markdown or csv.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.generator.Generate(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, report)
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(reporting.RenderMarkdown(report)))
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Write([]byte(reporting.RenderCSV(report.ApprovedPairs)))
	default:
		writeError(w, http.StatusBadRequest, "format must be json, md or csv")
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Uptime      string `json:"uptime"`
	PairCount   int    `json:"pair_count"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.stores.pairs.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:      "running",
		Environment: s.cfg.Environment,
		Uptime:      time.Since(s.startedAt).String(),
		PairCount:   len(pairs),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

package application

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

// HTTPServer serves the read API. Handlers are stateless: they read the
// current snapshot (or a slice of it), attach the degraded flag, and
// serialize. No handler blocks on a refresh and none returns 5xx just
// because an upstream feed is down.
type HTTPServer struct {
	server *http.Server
	svc    *Service
	logger *zap.Logger
}

// APIResponse is the envelope every endpoint uses.
type APIResponse struct {
	Success  bool   `json:"success"`
	Degraded bool   `json:"degraded"`
	Data     any    `json:"data,omitempty"`
	Error    string `json:"error,omitempty"`
}

func NewHTTPServer(port int, svc *Service, logger *zap.Logger) *HTTPServer {
	router := mux.NewRouter()

	h := &HTTPServer{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	router.Use(h.visitMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/snapshot", h.getSnapshot).Methods("GET")
	api.HandleFunc("/prices", h.getPrices).Methods("GET")
	api.HandleFunc("/banks", h.getBanks).Methods("GET")
	api.HandleFunc("/contagion", h.getContagion).Methods("GET")
	api.HandleFunc("/alerts", h.getAlerts).Methods("GET")
	api.HandleFunc("/cascade", h.getCascade).Methods("GET")
	api.HandleFunc("/countdowns", h.getCountdowns).Methods("GET")
	api.HandleFunc("/scenarios", h.getScenarios).Methods("GET")

	router.HandleFunc("/mode/live", h.switchMode(domain.LiveMode)).Methods("POST")
	router.HandleFunc("/mode/synthetic", h.switchMode(domain.SyntheticMode)).Methods("POST")
	router.HandleFunc("/health", h.getHealth).Methods("GET")

	return h
}

// visitMiddleware appends one visit-log record per request, fire and
// forget, and handles CORS for the dashboard UI.
func (h *HTTPServer) visitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.svc.RecordVisit(domain.VisitRecord{
			ID:         uuid.NewString(),
			Method:     r.Method,
			Path:       r.URL.Path,
			RemoteAddr: r.RemoteAddr,
			At:         time.Now().UTC(),
		})

		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func (h *HTTPServer) getSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, degraded := h.svc.CurrentSnapshot()
	if snapshot == nil {
		h.writeError(w, http.StatusServiceUnavailable, degraded, "no snapshot yet, first refresh pending")
		return
	}
	h.writeJSON(w, http.StatusOK, degraded, snapshot)
}

func (h *HTTPServer) getPrices(w http.ResponseWriter, r *http.Request) {
	h.section(w, domain.SourceQuotes, func(s *domain.DashboardSnapshot) any {
		return s.Prices
	})
}

func (h *HTTPServer) getBanks(w http.ResponseWriter, r *http.Request) {
	snapshot, degraded := h.svc.CurrentSnapshot()
	if snapshot == nil {
		h.writeError(w, http.StatusServiceUnavailable, degraded, "no snapshot yet, first refresh pending")
		return
	}
	file := h.svc.BankFile()
	h.writeJSON(w, http.StatusOK, degraded, map[string]any{
		"reference_version":    file.Version,
		"reference_as_of":      file.AsOf,
		"reference_provenance": file.Provenance,
		"exposures":            snapshot.Banks,
		"prices_meta":          snapshot.Sections[domain.SourceQuotes],
		"last_updated":         snapshot.LastUpdated,
	})
}

func (h *HTTPServer) getContagion(w http.ResponseWriter, r *http.Request) {
	h.derived(w, func(s *domain.DashboardSnapshot) any { return s.Contagion })
}

func (h *HTTPServer) getAlerts(w http.ResponseWriter, r *http.Request) {
	h.derived(w, func(s *domain.DashboardSnapshot) any { return s.Alerts })
}

func (h *HTTPServer) getCascade(w http.ResponseWriter, r *http.Request) {
	h.derived(w, func(s *domain.DashboardSnapshot) any { return s.Dominoes })
}

func (h *HTTPServer) getCountdowns(w http.ResponseWriter, r *http.Request) {
	h.derived(w, func(s *domain.DashboardSnapshot) any { return s.Countdowns })
}

func (h *HTTPServer) getScenarios(w http.ResponseWriter, r *http.Request) {
	_, degraded := h.svc.CurrentSnapshot()

	prices := []float64{50, 60, 70, 80, 90, 100, 150}
	if raw := r.URL.Query().Get("prices"); raw != "" {
		prices = prices[:0]
		for _, part := range strings.Split(raw, ",") {
			p, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil || p < 0 {
				h.writeError(w, http.StatusBadRequest, degraded, fmt.Sprintf("invalid price %q", part))
				return
			}
			prices = append(prices, p)
		}
	}
	if len(prices) > 50 {
		h.writeError(w, http.StatusBadRequest, degraded, "too many scenario prices, max 50")
		return
	}

	h.writeJSON(w, http.StatusOK, degraded, h.svc.Scenarios(prices))
}

func (h *HTTPServer) switchMode(mode domain.DataMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, degraded := h.svc.CurrentSnapshot()
		if err := h.svc.SwitchMode(mode); err != nil {
			h.writeError(w, http.StatusConflict, degraded, err.Error())
			return
		}
		h.writeJSON(w, http.StatusOK, degraded, map[string]string{
			"mode":   string(mode),
			"status": "switched",
		})
	}
}

func (h *HTTPServer) getHealth(w http.ResponseWriter, r *http.Request) {
	health := h.svc.Health()
	h.writeJSON(w, http.StatusOK, health.Degraded, health)
}

// section serves one projected slice of the snapshot, with the stale
// marker of the source that feeds it.
func (h *HTTPServer) section(w http.ResponseWriter, src domain.SourceID, project func(*domain.DashboardSnapshot) any) {
	snapshot, degraded := h.svc.CurrentSnapshot()
	if snapshot == nil {
		h.writeError(w, http.StatusServiceUnavailable, degraded, "no snapshot yet, first refresh pending")
		return
	}
	h.writeJSON(w, http.StatusOK, degraded, map[string]any{
		"data":         project(snapshot),
		"meta":         snapshot.Sections[src],
		"last_updated": snapshot.LastUpdated,
	})
}

// derived serves a computed slice that has no single backing source.
func (h *HTTPServer) derived(w http.ResponseWriter, project func(*domain.DashboardSnapshot) any) {
	snapshot, degraded := h.svc.CurrentSnapshot()
	if snapshot == nil {
		h.writeError(w, http.StatusServiceUnavailable, degraded, "no snapshot yet, first refresh pending")
		return
	}
	h.writeJSON(w, http.StatusOK, degraded, map[string]any{
		"data":         project(snapshot),
		"last_updated": snapshot.LastUpdated,
	})
}

func (h *HTTPServer) writeJSON(w http.ResponseWriter, status int, degraded bool, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := APIResponse{Success: true, Degraded: degraded, Data: data}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *HTTPServer) writeError(w http.ResponseWriter, status int, degraded bool, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := APIResponse{Success: false, Degraded: degraded, Error: message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode error response", zap.Error(err))
	}
}

func (h *HTTPServer) Start() error {
	h.logger.Info("HTTP server listening", zap.String("addr", h.server.Addr))
	if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (h *HTTPServer) Shutdown(ctx context.Context) error {
	h.logger.Info("shutting down HTTP server")
	return h.server.Shutdown(ctx)
}

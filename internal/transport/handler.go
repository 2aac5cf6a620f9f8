// Package transport exposes the thin HTTP/JSON surface for collaborators.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/fluxsignal/exchange-flow-backend/internal/enhance"
	"github.com/fluxsignal/exchange-flow-backend/internal/model"
	"github.com/fluxsignal/exchange-flow-backend/internal/pipeline"
	"github.com/fluxsignal/exchange-flow-backend/internal/scheduler"
	"github.com/fluxsignal/exchange-flow-backend/internal/store"
)

type (
	// StoreReader is the read surface the API delegates to.
	StoreReader interface {
		GetStats(ctx context.Context) (*store.Stats, error)
		GetFlowEvents(ctx context.Context, low, high uint64) ([]model.FlowEvent, error)
		TopBuyers(ctx context.Context, sinceHeight uint64, limit int) ([]store.AddressAggregate, error)
		TopSellers(ctx context.Context, sinceHeight uint64, limit int) ([]store.AddressAggregate, error)
		FlowTotals(ctx context.Context, sinceHeight uint64) (map[model.FlowType]store.FlowAggregate, error)
	}

	// PipelineStatus reports the ingestion state machine.
	PipelineStatus interface {
		Status(ctx context.Context) pipeline.Status
	}

	// Enhancer triggers manual runs and reports counters.
	Enhancer interface {
		EnhanceUnknowns(ctx context.Context) (*enhance.RunReport, error)
		Counters() enhance.Counters
		CacheStats() map[string]enhance.SubCacheStats
	}
)

// Handler is the collaborator-facing HTTP API.
type Handler struct {
	logger     *zap.Logger
	store      StoreReader
	pipeline   PipelineStatus
	enhancer   Enhancer
	background *scheduler.Toggle
	periods    map[string]uint64
}

// NewHandler builds the API handler.
func NewHandler(
	storeReader StoreReader,
	pipelineStatus PipelineStatus,
	enhancer Enhancer,
	background *scheduler.Toggle,
	periods map[string]uint64,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		logger:     logger.Named("api"),
		store:      storeReader,
		pipeline:   pipelineStatus,
		enhancer:   enhancer,
		background: background,
		periods:    periods,
	}
}

// Router wires all routes behind permissive CORS.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/api/status", h.status).Methods(http.MethodGet)
	r.HandleFunc("/api/flows", h.flows).Methods(http.MethodGet)
	r.HandleFunc("/api/flows/top", h.topFlows).Methods(http.MethodGet)
	r.HandleFunc("/api/enhance/run", h.runEnhancement).Methods(http.MethodPost)
	r.HandleFunc("/api/enhance/background/start", h.backgroundStart).Methods(http.MethodPost)
	r.HandleFunc("/api/enhance/background/stop", h.backgroundStop).Methods(http.MethodPost)
	return cors.Default().Handler(r)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.store.GetStats(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"pipeline":    h.pipeline.Status(ctx),
		"storage":     stats,
		"enhancement": h.enhancer.Counters(),
		"cache":       h.enhancer.CacheStats(),
		"background_enhancement": map[string]bool{
			"enabled": h.background.Enabled(),
		},
	})
}

func (h *Handler) flows(w http.ResponseWriter, r *http.Request) {
	low := queryUint(r, "from", 0)
	high := queryUint(r, "to", ^uint64(0))

	events, err := h.store.GetFlowEvents(r.Context(), low, high)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(events),
		"events": events,
	})
}

func (h *Handler) topFlows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := int(queryUint(r, "limit", 10))

	sinceHeight := uint64(0)
	status := h.pipeline.Status(ctx)
	if blocks, ok := h.periods[r.URL.Query().Get("period")]; ok && status.ChainTip > blocks {
		sinceHeight = status.ChainTip - blocks
	}

	side := r.URL.Query().Get("side")
	var (
		rows []store.AddressAggregate
		err  error
	)
	switch side {
	case "sellers":
		rows, err = h.store.TopSellers(ctx, sinceHeight, limit)
	default:
		side = "buyers"
		rows, err = h.store.TopBuyers(ctx, sinceHeight, limit)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	totals, err := h.store.FlowTotals(ctx, sinceHeight)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"side":         side,
		"since_height": sinceHeight,
		"rows":         rows,
		"totals":       totals,
	})
}

func (h *Handler) runEnhancement(w http.ResponseWriter, r *http.Request) {
	report, err := h.enhancer.EnhanceUnknowns(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) backgroundStart(w http.ResponseWriter, _ *http.Request) {
	h.background.Enable()
	h.writeJSON(w, http.StatusOK, map[string]bool{"enabled": true})
}

func (h *Handler) backgroundStop(w http.ResponseWriter, _ *http.Request) {
	h.background.Disable()
	h.writeJSON(w, http.StatusOK, map[string]bool{"enabled": false})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("write response failed", zap.Error(err))
	}
}

// writeError hides internals from callers; details go to the log only.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.logger.Error("request failed", zap.Error(err))
	h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func queryUint(r *http.Request, key string, fallback uint64) uint64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

// Server wraps the API handler with sane HTTP timeouts.
func Server(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}
}

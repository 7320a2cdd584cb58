// Package api exposes the token cache over HTTP and a websocket stream.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"launchpad-feed/internal/aggregator"
	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/observability"
	"launchpad-feed/internal/solana"
	"launchpad-feed/internal/storage"
)

// DefaultHistoryLimit is used when /tokens/{mint}/history has no limit.
const DefaultHistoryLimit = 50

// Cache is the read side of the aggregator used by the handlers.
type Cache interface {
	Get(ctx context.Context) (aggregator.Result, error)
	Status() aggregator.Status
}

// Options configures a Server.
type Options struct {
	Cache Cache

	// Activity backs the history endpoint. Nil disables it.
	Activity storage.ActivityStore

	// Hub serves /ws. Nil disables the stream.
	Hub *Hub

	Addresses *solana.AddressCache
	Logger    *zap.Logger
}

// Server routes HTTP requests to the cache.
type Server struct {
	cache     Cache
	activity  storage.ActivityStore
	hub       *Hub
	addresses *solana.AddressCache
	logger    *zap.Logger
	started   time.Time
	handler   http.Handler
}

// NewServer builds the router and middleware chain.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cache:     opts.Cache,
		activity:  opts.Activity,
		hub:       opts.Hub,
		addresses: opts.Addresses,
		logger:    logger.Named("api"),
		started:   time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /tokens", s.handleTokens)
	mux.HandleFunc("GET /tokens/{mint}/history", s.handleHistory)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("GET /metrics", observability.Handler())
	if s.hub != nil {
		mux.Handle("GET /ws", s.hub)
	}

	s.handler = requestID(s.instrument(s.recoverer(mux)))
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// handleTokens serves GET /tokens?action=&limit=.
func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	action, err := domain.ParseAction(q.Get("action"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(q.Get("limit"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.cache.Get(r.Context())
	if err != nil {
		s.requestLogger(r).Error("tokens unavailable", zap.Error(err))
		writeError(w, http.StatusInternalServerError, failureMessage(err))
		return
	}

	resp := Response{
		Success:     true,
		Data:        aggregator.Project(res.Snapshot, action, limit),
		Cached:      boolPtr(res.Cached),
		LastUpdated: res.Snapshot.LastUpdated,
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, aggregator.ErrConfiguration):
		return err.Error()
	case errors.Is(err, aggregator.ErrTotalRefreshFailure):
		return err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "request cancelled"
	default:
		return "internal error"
	}
}

// handleHistory serves GET /tokens/{mint}/history?limit=.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	mint := r.PathValue("mint")
	if !s.addresses.Valid(mint) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid mint address %q", mint))
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"), DefaultHistoryLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.activity == nil {
		writeError(w, http.StatusNotImplemented, "activity history is disabled")
		return
	}

	rows, err := s.activity.GetByMint(r.Context(), mint, limit)
	if err != nil {
		s.requestLogger(r).Error("activity lookup failed", zap.String("mint", mint), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "activity lookup failed")
		return
	}

	out := make([]activityView, 0, len(rows))
	for _, a := range rows {
		out = append(out, newActivityView(a))
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: out})
}

type activityView struct {
	TokenAddress string     `json:"tokenAddress"`
	TokenName    string     `json:"tokenName"`
	TokenSymbol  string     `json:"tokenSymbol"`
	Type         string     `json:"type"`
	PriceUSD     float64    `json:"priceUSD"`
	AmountUSD    float64    `json:"amountUSD"`
	LiquidityUSD float64    `json:"liquidityUSD"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
	ObservedAt   time.Time  `json:"observedAt"`
}

func newActivityView(a *domain.TokenActivity) activityView {
	v := activityView{
		TokenAddress: a.TokenAddress,
		TokenName:    a.TokenName,
		TokenSymbol:  a.TokenSymbol,
		Type:         string(a.Type),
		PriceUSD:     a.PriceUSD,
		AmountUSD:    a.AmountUSD,
		LiquidityUSD: a.LiquidityUSD,
		ObservedAt:   time.UnixMilli(a.ObservedAt).UTC(),
	}
	if a.LastActivity > 0 {
		t := time.UnixMilli(a.LastActivity).UTC()
		v.LastActivity = &t
	}
	return v
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StatusResponse is the data of GET /status.
type StatusResponse struct {
	Cache     aggregator.Status `json:"cache"`
	WSClients int               `json:"wsClients"`
	Uptime    string            `json:"uptime"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Cache:     s.cache.Status(),
		WSClients: s.hub.Len(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: resp})
}

// parseLimit parses a 1..MaxLimit integer. Empty returns def.
func parseLimit(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > aggregator.MaxLimit {
		return 0, fmt.Errorf("limit must be an integer between 1 and %d", aggregator.MaxLimit)
	}
	return n, nil
}

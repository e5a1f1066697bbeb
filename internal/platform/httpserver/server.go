package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	disbursementservice "captminter/contexts/rewarding/disbursement-service"
	domainerrors "captminter/contexts/rewarding/disbursement-service/domain/errors"
	transporthttp "captminter/contexts/rewarding/disbursement-service/transport/http"
)

// Server exposes the read-only reconciliation API next to the worker:
// session reward state, recent receipts, and per-wallet totals.
type Server struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	addr      string
	rewarding disbursementservice.Module
}

func New(rewarding disbursementservice.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		addr:      addr,
		rewarding: rewarding,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /v1/rewarding/sessions/{session_id}", s.handleGetSession)
	s.mux.HandleFunc("GET /v1/rewarding/receipts", s.handleListReceipts)
	s.mux.HandleFunc("GET /v1/rewarding/wallets/{wallet_address}/total", s.handleGetWalletTotal)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	resp, err := s.rewarding.Handler.GetSessionHandler(r.Context(), sessionID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitRaw := r.URL.Query().Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}
	resp, err := s.rewarding.Handler.ListReceiptsHandler(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetWalletTotal(w http.ResponseWriter, r *http.Request) {
	walletAddress := r.PathValue("wallet_address")
	resp, err := s.rewarding.Handler.GetWalletTotalHandler(r.Context(), walletAddress)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrReceiptNotFound):
		writeError(w, http.StatusNotFound, "receipt_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrWalletTotalNotFound):
		writeError(w, http.StatusNotFound, "wallet_total_not_found", err.Error())
	default:
		s.logger.Error("unhandled api error",
			"event", "http_unhandled_error",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, transporthttp.ErrorResponse{Code: code, Message: message})
}

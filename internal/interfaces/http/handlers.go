package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/dygsom/fraudscore/internal/domain"
)

// maxRequestBody caps the scoring request payload.
const maxRequestBody = 1 << 20

// errorResponse is the uniform error body.
type errorResponse struct {
	Detail string `json:"detail"`
}

// handleScore is POST /api/v1/fraud/score.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var tx domain.Transaction

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "Invalid JSON body"})
		return
	}

	if err := tx.Normalize(time.Now()); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.deps.Scorer.Score(r.Context(), &tx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// transactionResponse is the read-back view of a stored record.
type transactionResponse struct {
	TransactionID  string    `json:"transaction_id"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	Timestamp      time.Time `json:"timestamp"`
	CustomerEmail  string    `json:"customer_email"`
	FraudScore     float64   `json:"fraud_score"`
	RiskLevel      string    `json:"risk_level"`
	Recommendation string    `json:"recommendation"`
	CreatedAt      time.Time `json:"created_at"`
}

// handleTransaction is GET /api/v1/fraud/transaction/{transaction_id}.
func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := mux.Vars(r)["transaction_id"]

	rec, err := s.deps.TxRepo.FindByTransactionID(r.Context(), transactionID)
	if err != nil {
		log.Error().Err(err).Str("transaction_id", transactionID).Msg("transaction lookup failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "Internal server error"})
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "Transaction not found"})
		return
	}

	amount, _ := rec.Amount.Float64()
	writeJSON(w, http.StatusOK, transactionResponse{
		TransactionID:  rec.TransactionID,
		Amount:         amount,
		Currency:       rec.Currency,
		Timestamp:      rec.Timestamp,
		CustomerEmail:  rec.CustomerEmail,
		FraudScore:     rec.FraudScore,
		RiskLevel:      string(rec.RiskLevel),
		Recommendation: string(rec.Decision),
		CreatedAt:      rec.CreatedAt,
	})
}

// handleRiskStatistics is GET /api/v1/fraud/statistics/risk.
func (s *Server) handleRiskStatistics(w http.ResponseWriter, r *http.Request) {
	counts, err := s.deps.TxRepo.RiskLevelCounts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("risk statistics query failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "Internal server error"})
		return
	}

	levels := make(map[string]int64, len(counts))
	var total int64
	for level, n := range counts {
		levels[string(level)] = n
		total += n
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"risk_levels": levels,
		"total":       total,
	})
}

// handleHealth is the liveness probe. It touches no dependencies so a
// degraded database never makes the process look dead.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "fraud-scoring-api",
		"timestamp": time.Now().UTC(),
	})
}

// handleReady probes PostgreSQL and Redis with a short deadline and reports
// 503 until both answer.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
	defer cancel()

	checks := map[string]string{"postgres": "ok", "redis": "ok"}
	healthy := true

	if err := s.deps.DB.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	}
	if err := s.deps.Cache.Ping(ctx); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	}

	status := http.StatusOK
	state := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": checks})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Detail: "Not found"})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Detail: "Method not allowed"})
}

// writeError maps core error types to status codes and the uniform body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *domain.ValidationError
		authErr       *domain.AuthError
		quotaErr      *domain.QuotaError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: validationErr.Error()})
	case errors.As(err, &authErr):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: authErr.Detail})
	case errors.As(err, &quotaErr):
		seconds := int(quotaErr.RetryAfter.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Detail: "Rate limit exceeded. Try again later.",
		})
	case errors.Is(err, domain.ErrPersistenceWrite):
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Detail: "Transaction could not be recorded",
		})
	default:
		requestID, _ := r.Context().Value(requestIDKey).(string)
		log.Error().Err(err).Str("request_id", requestID).Msg("unhandled request error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("response encode failed")
	}
}

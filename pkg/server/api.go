package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ratecompass/ratecompass/pkg/engine"
	"github.com/ratecompass/ratecompass/pkg/log"
)

// maxEvaluateBodyBytes bounds an evaluate request; a year of 15-minute
// readings is well under this.
const maxEvaluateBodyBytes = 8 << 20

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxEvaluateBodyBytes)

	var in engine.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode evaluate request", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	pack := s.engine.Evaluate(ctx, in)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(pack); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to encode evaluate response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

type ruleInfo struct {
	ID string `json:"id"`
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	all := s.rules.Rules()
	infos := make([]ruleInfo, len(all))
	for i, rule := range all {
		infos[i] = ruleInfo{ID: rule.ID()}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(infos); err != nil {
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
}

func (s *Server) handleListRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	utility := r.URL.Query().Get("utility")
	if utility == "" {
		writeJSONError(w, "utility query parameter required", http.StatusBadRequest)
		return
	}

	rates, err := s.catalog.Rates(ctx, utility)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "rate catalog listing failed", slog.String("utility", utility), slog.Any("error", err))
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rates); err != nil {
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
}

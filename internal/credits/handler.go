package credits

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/phraseflow/backend/internal/models"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// validateUpdate checks an admin balance update before any write happens.
func validateUpdate(req models.UpdateBalancesRequest) error {
	if req.Coins == nil && len(req.CreditDeltas) == 0 {
		return fmt.Errorf("nothing to update: provide coins or credit_deltas")
	}
	if req.Coins != nil && *req.Coins < 0 {
		return fmt.Errorf("coins must not be negative")
	}
	for creditType := range req.CreditDeltas {
		if creditType == models.RewardTypeCoins {
			return fmt.Errorf("use the coins field to set coins, not credit_deltas")
		}
		if !models.ValidRewardType(creditType) {
			return fmt.Errorf("unknown credit type %q", creditType)
		}
	}
	return nil
}

// ── Admin Endpoints ─────────────────────────────────────

func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid user ID"})
		return
	}

	balances, err := h.store.GetBalances(userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "User not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load balances"})
		return
	}

	writeJSON(w, http.StatusOK, balances)
}

func (h *Handler) UpdateBalances(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid user ID"})
		return
	}

	var req models.UpdateBalancesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := validateUpdate(req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if req.Coins != nil {
		if err := h.store.SetCoins(userID, *req.Coins); err != nil {
			h.writeUpdateError(w, err)
			return
		}
	}
	if len(req.CreditDeltas) > 0 {
		if err := h.store.ApplyCreditDeltas(userID, req.CreditDeltas); err != nil {
			h.writeUpdateError(w, err)
			return
		}
	}

	balances, err := h.store.GetBalances(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load balances"})
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (h *Handler) writeUpdateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "User not found"})
	case errors.Is(err, ErrNegativeBalance):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to update balances"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

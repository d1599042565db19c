package credits

import (
	"testing"

	"github.com/phraseflow/backend/internal/models"
)

func int64Ptr(v int64) *int64 { return &v }

func TestValidateUpdate_EmptyRequest(t *testing.T) {
	if err := validateUpdate(models.UpdateBalancesRequest{}); err == nil {
		t.Error("expected error for empty update request")
	}
}

func TestValidateUpdate_NegativeCoins(t *testing.T) {
	req := models.UpdateBalancesRequest{Coins: int64Ptr(-1)}
	if err := validateUpdate(req); err == nil {
		t.Error("expected error for negative coins")
	}
}

func TestValidateUpdate_ZeroCoinsAllowed(t *testing.T) {
	req := models.UpdateBalancesRequest{Coins: int64Ptr(0)}
	if err := validateUpdate(req); err != nil {
		t.Errorf("expected zero coins to be valid, got %v", err)
	}
}

func TestValidateUpdate_UnknownCreditType(t *testing.T) {
	req := models.UpdateBalancesRequest{
		CreditDeltas: map[string]int64{"telepathy": 5},
	}
	if err := validateUpdate(req); err == nil {
		t.Error("expected error for unknown credit type")
	}
}

func TestValidateUpdate_CoinsNotACreditType(t *testing.T) {
	req := models.UpdateBalancesRequest{
		CreditDeltas: map[string]int64{models.RewardTypeCoins: 5},
	}
	if err := validateUpdate(req); err == nil {
		t.Error("expected error for coins inside credit_deltas")
	}
}

func TestValidateUpdate_NegativeDeltaAllowed(t *testing.T) {
	// Spending credits via a negative delta is valid here; the store rejects
	// it only if the resulting balance would go below zero.
	req := models.UpdateBalancesRequest{
		CreditDeltas: map[string]int64{"chat": -3, "vocab": 10},
	}
	if err := validateUpdate(req); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}
}

package models

// CreditTypes lists every named credit kind stored on a user row, in the
// order they appear in the schema. The coin balance is separate.
var CreditTypes = []string{
	"audio",
	"chat",
	"correction",
	"etymology",
	"explanation",
	"explorer",
	"extraction",
	"grammar",
	"ipa",
	"pronunciation",
	"sentence",
	"vocab",
}

// RewardTypeCoins is the reward type that credits the coin balance; every
// other valid reward type is a CreditTypes entry.
const RewardTypeCoins = "coins"

// ValidRewardType reports whether t is "coins" or a known credit type.
func ValidRewardType(t string) bool {
	if t == RewardTypeCoins {
		return true
	}
	for _, c := range CreditTypes {
		if c == t {
			return true
		}
	}
	return false
}

type UserBalances struct {
	UserID  int64            `json:"user_id"`
	Coins   int64            `json:"coins"`
	Credits map[string]int64 `json:"credits"`
}

// UpdateBalancesRequest is the admin top-up payload: an absolute coin total,
// a map of credit-type deltas, or both.
type UpdateBalancesRequest struct {
	Coins        *int64           `json:"coins,omitempty"`
	CreditDeltas map[string]int64 `json:"credit_deltas,omitempty"`
}

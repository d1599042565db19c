package credits

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/phraseflow/backend/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// ErrNegativeBalance is returned when a credit delta would take a balance
// below zero; the whole update is rolled back.
var ErrNegativeBalance = errors.New("resulting balance would be negative")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetBalances(userID int64) (*models.UserBalances, error) {
	cols := "coins"
	for _, c := range models.CreditTypes {
		cols += ", " + c + "_credits"
	}

	dest := make([]interface{}, 0, len(models.CreditTypes)+1)
	var coins int64
	dest = append(dest, &coins)
	creditValues := make([]int64, len(models.CreditTypes))
	for i := range creditValues {
		dest = append(dest, &creditValues[i])
	}

	err := s.db.QueryRow(
		fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, cols), userID,
	).Scan(dest...)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get balances: %w", err)
	}

	credits := make(map[string]int64, len(models.CreditTypes))
	for i, c := range models.CreditTypes {
		credits[c] = creditValues[i]
	}
	return &models.UserBalances{UserID: userID, Coins: coins, Credits: credits}, nil
}

// SetCoins writes an absolute coin total. The admin top-up semantics are
// last-write-wins on this column.
func (s *Store) SetCoins(userID, coins int64) error {
	result, err := s.db.Exec(
		`UPDATE users SET coins = $2, updated_at = NOW() WHERE id = $1`,
		userID, coins,
	)
	if err != nil {
		return fmt.Errorf("set coins: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ApplyCreditDeltas applies every delta as a guarded atomic increment inside
// one transaction. Any delta that would push a balance negative aborts the
// whole update. Credit types must already be validated by the caller.
func (s *Store) ApplyCreditDeltas(userID int64, deltas map[string]int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin credit update: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}

	for _, creditType := range models.CreditTypes {
		delta, ok := deltas[creditType]
		if !ok || delta == 0 {
			continue
		}
		column := creditType + "_credits"
		query := fmt.Sprintf(
			`UPDATE users SET %s = %s + $2, updated_at = NOW()
			 WHERE id = $1 AND %s + $2 >= 0`,
			column, column, column,
		)
		result, err := tx.Exec(query, userID, delta)
		if err != nil {
			return fmt.Errorf("update %s: %w", column, err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("%s: %w", creditType, ErrNegativeBalance)
		}
	}

	return tx.Commit()
}

package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Token ledger errors.
var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenUsed     = errors.New("token already used")
)

// TokenRecord represents a single-use download token.
type TokenRecord struct {
	Token     string
	ItemID    int64
	Used      bool
	CreatedAt time.Time
}

// IssueToken mints a fresh unconsumed token bound to the given item and
// persists it. Every call produces a distinct token; tokens are never
// reused across requests.
func (s *Store) IssueToken(itemID int64) (string, error) {
	token := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO issued_tokens (token, item_id, used, created_at)
		VALUES (?, ?, 0, ?)
	`, token, itemID, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetToken retrieves a ledger entry by token value.
func (s *Store) GetToken(token string) (*TokenRecord, error) {
	row := s.db.QueryRow(`
		SELECT token, item_id, used, created_at
		FROM issued_tokens WHERE token = ?
	`, token)

	var rec TokenRecord
	if err := row.Scan(&rec.Token, &rec.ItemID, &rec.Used, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// RedeemToken atomically marks the token consumed and returns the item
// it is bound to. The used flag is flipped by a single conditional
// UPDATE, so under concurrent redemption of the same token exactly one
// caller succeeds; the rest get ErrTokenUsed. Once consumed a token
// never reverts, and repeated attempts keep failing with ErrTokenUsed.
func (s *Store) RedeemToken(token string) (*ItemRecord, error) {
	res, err := s.db.Exec(`
		UPDATE issued_tokens SET used = 1 WHERE token = ? AND used = 0
	`, token)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Lost the race or the token never existed; look it up to tell
		// the two apart.
		rec, err := s.GetToken(token)
		if err != nil {
			return nil, err
		}
		if rec.Used {
			return nil, ErrTokenUsed
		}
		return nil, ErrTokenNotFound
	}

	row := s.db.QueryRow(`
		SELECT i.id, i.name, i.type, i.file_path, i.key_value, i.instruction, i.created_at
		FROM issued_tokens t
		JOIN digital_items i ON t.item_id = i.id
		WHERE t.token = ?
	`, token)

	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

// CountTokens returns issued and consumed token counts for an item.
func (s *Store) CountTokens(itemID int64) (issued, used int, err error) {
	row := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(used), 0)
		FROM issued_tokens WHERE item_id = ?
	`, itemID)
	if err := row.Scan(&issued, &used); err != nil {
		return 0, 0, err
	}
	return issued, used, nil
}

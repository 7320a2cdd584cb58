package clickhouse

import (
	"context"
	"fmt"

	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/storage"
)

// ActivityStore implements storage.ActivityStore using ClickHouse.
type ActivityStore struct {
	conn *Conn
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(conn *Conn) *ActivityStore {
	return &ActivityStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ActivityStore = (*ActivityStore)(nil)

// InsertBulk adds activity rows of one cycle. Fails entire batch on duplicate
// (token_address, observed_at).
//
// MergeTree does not enforce uniqueness; duplicates are checked explicitly.
// All rows of a refresh cycle share observed_at, so one query covers the batch.
func (s *ActivityStore) InsertBulk(ctx context.Context, rows []*domain.TokenActivity) error {
	if len(rows) == 0 {
		return nil
	}

	type key struct {
		mint       string
		observedAt int64
	}
	seen := make(map[key]struct{}, len(rows))
	byObserved := make(map[int64][]string)
	for _, r := range rows {
		if r == nil || r.TokenAddress == "" {
			return storage.ErrInvalidInput
		}
		k := key{r.TokenAddress, r.ObservedAt}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		byObserved[r.ObservedAt] = append(byObserved[r.ObservedAt], r.TokenAddress)
	}

	for observedAt, mints := range byObserved {
		exists, err := s.exists(ctx, observedAt, mints)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO token_activity (
			token_address, observed_at, token_name, token_symbol, type,
			price_usd, amount_usd, liquidity_usd, last_activity
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			r.TokenAddress, uint64(r.ObservedAt), r.TokenName, r.TokenSymbol, string(r.Type),
			r.PriceUSD, r.AmountUSD, r.LiquidityUSD, uint64(r.LastActivity),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByMint retrieves activity for a mint, ordered by observed_at DESC.
func (s *ActivityStore) GetByMint(ctx context.Context, mint string, limit int) ([]*domain.TokenActivity, error) {
	query := `
		SELECT token_address, observed_at, token_name, token_symbol, type,
			price_usd, amount_usd, liquidity_usd, last_activity
		FROM token_activity
		WHERE token_address = ?
		ORDER BY observed_at DESC
	`
	args := []any{mint}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, uint64(limit))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	var result []*domain.TokenActivity
	for rows.Next() {
		var a domain.TokenActivity
		var observedAt, lastActivity uint64
		var typ string

		err := rows.Scan(
			&a.TokenAddress, &observedAt, &a.TokenName, &a.TokenSymbol, &typ,
			&a.PriceUSD, &a.AmountUSD, &a.LiquidityUSD, &lastActivity,
		)
		if err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		a.ObservedAt = int64(observedAt)
		a.LastActivity = int64(lastActivity)
		a.Type = domain.TokenType(typ)
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity rows: %w", err)
	}

	if result == nil {
		result = []*domain.TokenActivity{}
	}
	return result, nil
}

func (s *ActivityStore) exists(ctx context.Context, observedAt int64, mints []string) (bool, error) {
	query := `
		SELECT count(*) FROM token_activity
		WHERE observed_at = ? AND token_address IN (?)
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, uint64(observedAt), mints).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

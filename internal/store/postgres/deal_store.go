package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/valoriste/valoriste/internal/domain"
)

// DealStore implements domain.DealStore using PostgreSQL. Each scan is one
// row in scans with its deals batch-inserted into deals.
type DealStore struct {
	pool *pgxpool.Pool
}

// NewDealStore creates a new DealStore backed by the given connection pool.
func NewDealStore(pool *pgxpool.Pool) *DealStore {
	return &DealStore{pool: pool}
}

// InsertScan persists a scan result and its deals in one transaction.
func (s *DealStore) InsertScan(ctx context.Context, result domain.ScanResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin scan tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const scanQuery = `
		INSERT INTO scans (scan_id, user_id, started_at, duration_ms, total_items, deal_count)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.Exec(ctx, scanQuery,
		result.ScanID, result.UserID, result.StartedAt,
		result.Duration.Milliseconds(), result.TotalItems, len(result.Deals),
	); err != nil {
		return fmt.Errorf("postgres: insert scan %s: %w", result.ScanID, err)
	}

	if len(result.Deals) > 0 {
		batch := &pgx.Batch{}
		const dealQuery = `
			INSERT INTO deals (scan_id, user_id, item_id, title, price, currency,
			                   condition, brand, item_url, image_url, shipping,
			                   market_value, fees, profit, roi, scored_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
		for _, d := range result.Deals {
			l := d.Listing
			batch.Queue(dealQuery,
				result.ScanID, result.UserID, l.ItemID, l.Title, l.Price, l.Currency,
				l.Condition, l.Brand, l.ItemURL, l.ImageURL, l.ShippingCost,
				d.MarketValue, d.Fees, d.Profit, d.ROI, d.ScoredAt,
			)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range result.Deals {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("postgres: insert deal %d of scan %s: %w", i, result.ScanID, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("postgres: close deal batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit scan %s: %w", result.ScanID, err)
	}
	return nil
}

// ListRecent returns the most recently scored deals for a user, newest first.
func (s *DealStore) ListRecent(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Deal, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT item_id, title, price, currency, condition, brand, item_url,
		       image_url, shipping, market_value, fees, profit, roi, scored_at
		FROM deals
		WHERE user_id = $1
		ORDER BY scored_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, userID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list deals for %s: %w", userID, err)
	}
	defer rows.Close()

	var deals []domain.Deal
	for rows.Next() {
		var d domain.Deal
		l := &d.Listing
		if err := rows.Scan(
			&l.ItemID, &l.Title, &l.Price, &l.Currency, &l.Condition, &l.Brand,
			&l.ItemURL, &l.ImageURL, &l.ShippingCost,
			&d.MarketValue, &d.Fees, &d.Profit, &d.ROI, &d.ScoredAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan deal row: %w", err)
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

// LastScanTime returns when the user's most recent scan started, or
// domain.ErrNotFound when the user has never been scanned.
func (s *DealStore) LastScanTime(ctx context.Context, userID string) (time.Time, error) {
	const query = `SELECT started_at FROM scans WHERE user_id = $1 ORDER BY started_at DESC LIMIT 1`

	var ts time.Time
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, domain.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("postgres: last scan time for %s: %w", userID, err)
	}
	return ts, nil
}

// Compile-time interface check.
var _ domain.DealStore = (*DealStore)(nil)

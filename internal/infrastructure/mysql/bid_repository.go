package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auction-engine/internal/domain"
)

type BidRepository struct {
	db *sql.DB
}

func NewBidRepository(db *sql.DB) *BidRepository {
	return &BidRepository{db: db}
}

func (r *BidRepository) Insert(ctx context.Context, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (id, auction_id, bidder_id, amount, is_winning, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		bid.ID, bid.AuctionID, bid.BidderID, bid.Amount, bid.IsWinning,
		bid.CreatedAt, bid.UpdatedAt)
	return err
}

func (r *BidRepository) Update(ctx context.Context, bid *domain.Bid) error {
	query := `UPDATE bids SET amount = ?, is_winning = ?, created_at = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		bid.Amount, bid.IsWinning, bid.CreatedAt, bid.UpdatedAt, bid.ID)
	return err
}

func (r *BidRepository) GetByBidder(ctx context.Context, auctionID, bidderID string) (*domain.Bid, error) {
	query := `
        SELECT id, auction_id, bidder_id, amount, is_winning, created_at, updated_at
        FROM bids WHERE auction_id = ? AND bidder_id = ?
    `
	bid, err := r.scanOne(r.db.QueryRowContext(ctx, query, auctionID, bidderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bidder %s on auction %s: %w", bidderID, auctionID, domain.ErrBidNotFound)
	}
	return bid, err
}

func (r *BidRepository) ListByAuction(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	query := `
        SELECT id, auction_id, bidder_id, amount, is_winning, created_at, updated_at
        FROM bids WHERE auction_id = ?
        ORDER BY amount DESC, created_at ASC
    `

	rows, err := r.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		var b domain.Bid
		err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount,
			&b.IsWinning, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return nil, err
		}
		bids = append(bids, &b)
	}
	return bids, rows.Err()
}

func (r *BidRepository) Highest(ctx context.Context, auctionID string) (*domain.Bid, error) {
	query := `
        SELECT id, auction_id, bidder_id, amount, is_winning, created_at, updated_at
        FROM bids WHERE auction_id = ?
        ORDER BY amount DESC, created_at ASC
        LIMIT 1
    `
	bid, err := r.scanOne(r.db.QueryRowContext(ctx, query, auctionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("auction %s has no bids: %w", auctionID, domain.ErrBidNotFound)
	}
	return bid, err
}

func (r *BidRepository) SetWinning(ctx context.Context, auctionID, bidID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE bids SET is_winning = FALSE WHERE auction_id = ?`, auctionID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE bids SET is_winning = TRUE WHERE id = ? AND auction_id = ?`, bidID, auctionID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("bid %s on auction %s: %w", bidID, auctionID, domain.ErrBidNotFound)
	}

	return tx.Commit()
}

func (r *BidRepository) scanOne(row *sql.Row) (*domain.Bid, error) {
	var b domain.Bid
	err := row.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount,
		&b.IsWinning, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"auction-engine/internal/domain"
)

type AuctionRepository struct {
	db *sql.DB
}

func NewAuctionRepository(db *sql.DB) *AuctionRepository {
	return &AuctionRepository{db: db}
}

func (r *AuctionRepository) Create(ctx context.Context, a *domain.Auction) error {
	query := `
        INSERT INTO auctions
            (id, title, description, seller_id, base_price, bid_increment,
             reserve_price, buy_now_price, current_bid, bid_count,
             start_time, end_time, status, winner_id, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Title, a.Description, a.SellerID, a.BasePrice, a.BidIncrement,
		a.ReservePrice, a.BuyNowPrice, a.CurrentBid, a.BidCount,
		a.StartTime, a.EndTime, int(a.Status), a.WinnerID, a.CreatedAt, a.UpdatedAt)
	return err
}

const auctionColumns = `
        id, title, description, seller_id, base_price, bid_increment,
        reserve_price, buy_now_price, current_bid, bid_count,
        start_time, end_time, status, winner_id, created_at, updated_at`

func scanAuction(row interface{ Scan(...interface{}) error }) (*domain.Auction, error) {
	var a domain.Auction
	var status int

	err := row.Scan(
		&a.ID, &a.Title, &a.Description, &a.SellerID, &a.BasePrice, &a.BidIncrement,
		&a.ReservePrice, &a.BuyNowPrice, &a.CurrentBid, &a.BidCount,
		&a.StartTime, &a.EndTime, &status, &a.WinnerID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	a.Status = domain.AuctionStatus(status)
	return &a, nil
}

func (r *AuctionRepository) Get(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `SELECT` + auctionColumns + ` FROM auctions WHERE id = ?`

	a, err := scanAuction(r.db.QueryRowContext(ctx, query, auctionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("auction %s: %w", auctionID, domain.ErrAuctionNotFound)
	}
	return a, err
}

// UpdateCurrentBid is monotonic: GREATEST keeps a retried or partially
// failed admission from ever moving the pointer downward.
func (r *AuctionRepository) UpdateCurrentBid(ctx context.Context, auctionID string, amount float64, incrementCount bool) error {
	query := `UPDATE auctions SET current_bid = GREATEST(current_bid, ?), updated_at = ? WHERE id = ?`
	if incrementCount {
		query = `UPDATE auctions SET current_bid = GREATEST(current_bid, ?), bid_count = bid_count + 1, updated_at = ? WHERE id = ?`
	}
	_, err := r.db.ExecContext(ctx, query, amount, time.Now(), auctionID)
	return err
}

// TransitionStatus is a compare-and-swap on the status column: the row
// only updates while it is still in the expected state, which gives the
// exactly-once guarantee for racing sweeps and resolutions.
func (r *AuctionRepository) TransitionStatus(ctx context.Context, auctionID string, from, to domain.AuctionStatus) error {
	query := `UPDATE auctions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, query, int(to), time.Now(), auctionID, int(from))
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("auction %s is not %s: %w", auctionID, from, domain.ErrInvalidTransition)
	}
	return nil
}

func (r *AuctionRepository) SetWinner(ctx context.Context, auctionID, winnerID string) error {
	query := `UPDATE auctions SET winner_id = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, winnerID, time.Now(), auctionID)
	return err
}

func (r *AuctionRepository) FindExpired(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	query := `SELECT` + auctionColumns + ` FROM auctions WHERE status = ? AND end_time <= ?`
	return r.list(ctx, query, int(domain.AuctionActive), now)
}

func (r *AuctionRepository) FindStartable(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	query := `SELECT` + auctionColumns + ` FROM auctions WHERE status = ? AND start_time <= ?`
	return r.list(ctx, query, int(domain.AuctionScheduled), now)
}

func (r *AuctionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Auction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

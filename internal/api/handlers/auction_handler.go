package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"auction-engine/internal/domain"
	"auction-engine/internal/services"
	"auction-engine/pkg/logger"
)

// Identity is taken from the X-User-ID header; session mechanics live
// in the gateway in front of this service.
const userIDHeader = "X-User-ID"

type AuctionHandler struct {
	auctions *services.AuctionService
	log      logger.Logger
}

func NewAuctionHandler(auctions *services.AuctionService, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{auctions: auctions, log: log}
}

type CreateAuctionRequest struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	BasePrice    float64   `json:"base_price"`
	BidIncrement float64   `json:"bid_increment"`
	ReservePrice float64   `json:"reserve_price"`
	BuyNowPrice  float64   `json:"buy_now_price"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
}

type AuctionResponse struct {
	AuctionID    string    `json:"auction_id"`
	Title        string    `json:"title"`
	SellerID     string    `json:"seller_id"`
	BasePrice    float64   `json:"base_price"`
	BidIncrement float64   `json:"bid_increment"`
	CurrentBid   float64   `json:"current_bid"`
	BidCount     int       `json:"bid_count"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Status       string    `json:"status"`
	WinnerID     string    `json:"winner_id,omitempty"`
}

func toAuctionResponse(a *domain.Auction) AuctionResponse {
	return AuctionResponse{
		AuctionID:    a.ID,
		Title:        a.Title,
		SellerID:     a.SellerID,
		BasePrice:    a.BasePrice,
		BidIncrement: a.BidIncrement,
		CurrentBid:   a.CurrentBid,
		BidCount:     a.BidCount,
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		Status:       a.Status.String(),
		WinnerID:     a.WinnerID,
	}
}

func (h *AuctionHandler) Create(c echo.Context) error {
	sellerID := c.Request().Header.Get(userIDHeader)
	if sellerID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing user identity"})
	}

	var req CreateAuctionRequest
	if err := c.Bind(&req); err != nil {
		h.log.Error("Failed to bind create request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Title is required"})
	}
	if req.BasePrice <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Base price must be positive"})
	}
	if !req.EndTime.After(req.StartTime) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "End time must be after start time"})
	}

	auction, err := h.auctions.Create(c.Request().Context(), services.CreateAuctionParams{
		Title:        req.Title,
		Description:  req.Description,
		SellerID:     sellerID,
		BasePrice:    req.BasePrice,
		BidIncrement: req.BidIncrement,
		ReservePrice: req.ReservePrice,
		BuyNowPrice:  req.BuyNowPrice,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	})
	if err != nil {
		h.log.Error("Failed to create auction", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create auction"})
	}

	return c.JSON(http.StatusCreated, toAuctionResponse(auction))
}

func (h *AuctionHandler) Get(c echo.Context) error {
	auction, err := h.auctions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Auction not found"})
		}
		h.log.Error("Failed to load auction", "auction_id", c.Param("id"), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load auction"})
	}
	return c.JSON(http.StatusOK, toAuctionResponse(auction))
}

func (h *AuctionHandler) Cancel(c echo.Context) error {
	auctionID := c.Param("id")

	err := h.auctions.Cancel(c.Request().Context(), auctionID)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]string{"message": "Auction cancelled"})
	case errors.Is(err, domain.ErrAuctionNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Auction not found"})
	case errors.Is(err, domain.ErrCancelHasBids):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Cannot cancel: bids already exist"})
	case errors.Is(err, domain.ErrInvalidTransition):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Auction cannot be cancelled in its current state"})
	default:
		h.log.Error("Failed to cancel auction", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to cancel auction"})
	}
}

type BidHistoryEntry struct {
	BidID     string    `json:"bid_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	IsWinning bool      `json:"is_winning"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *AuctionHandler) Bids(c echo.Context) error {
	bids, err := h.auctions.BidHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Auction not found"})
		}
		h.log.Error("Failed to load bid history", "auction_id", c.Param("id"), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load bids"})
	}

	out := make([]BidHistoryEntry, 0, len(bids))
	for _, b := range bids {
		out = append(out, BidHistoryEntry{
			BidID:     b.ID,
			BidderID:  b.BidderID,
			Amount:    b.Amount,
			IsWinning: b.IsWinning,
			CreatedAt: b.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"bids": out})
}

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

type BidHandler struct {
	admission *services.BidAdmissionService
	log       logger.Logger
}

func NewBidHandler(admission *services.BidAdmissionService, log logger.Logger) *BidHandler {
	return &BidHandler{admission: admission, log: log}
}

type PlaceBidRequest struct {
	Amount float64 `json:"amount"`
}

type PlaceBidResponse struct {
	BidID          string    `json:"bid_id"`
	AuctionID      string    `json:"auction_id"`
	Amount         float64   `json:"amount"`
	IsUpdate       bool      `json:"is_update"`
	PreviousAmount float64   `json:"previous_amount,omitempty"`
	CurrentBid     float64   `json:"current_bid"`
	CreatedAt      time.Time `json:"created_at"`
}

func (h *BidHandler) PlaceBid(c echo.Context) error {
	bidderID := c.Request().Header.Get(userIDHeader)
	if bidderID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing user identity"})
	}

	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Bid amount must be positive"})
	}

	auctionID := c.Param("id")
	result, err := h.admission.PlaceBid(c.Request().Context(), auctionID, bidderID, req.Amount)
	if err != nil {
		return h.bidError(c, err)
	}

	status := http.StatusCreated
	if result.IsUpdate {
		status = http.StatusOK
	}
	return c.JSON(status, PlaceBidResponse{
		BidID:          result.Bid.ID,
		AuctionID:      auctionID,
		Amount:         result.Bid.Amount,
		IsUpdate:       result.IsUpdate,
		PreviousAmount: result.PreviousAmount,
		CurrentBid:     result.CurrentBid,
		CreatedAt:      result.Bid.CreatedAt,
	})
}

// bidError maps admission failures onto responses; a rejected bid
// always states the current minimum acceptable amount.
func (h *BidHandler) bidError(c echo.Context, err error) error {
	var tooLow *domain.BidTooLowError
	var stale *domain.StaleBidError

	switch {
	case errors.Is(err, domain.ErrAuctionNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Auction not found"})
	case errors.Is(err, domain.ErrSelfBid):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error":  "Cannot bid on your own auction",
			"reason": "SelfBid",
		})
	case errors.Is(err, domain.ErrAuctionClosed):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error":  "Auction is not open for bidding",
			"reason": "AuctionClosed",
		})
	case errors.As(err, &tooLow):
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   tooLow.Error(),
			"reason":  "BidTooLow",
			"minimum": tooLow.Minimum,
		})
	case errors.As(err, &stale):
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":          stale.Error(),
			"reason":         "BidTooLow",
			"current_amount": stale.CurrentAmount,
		})
	default:
		h.log.Error("Bid placement failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to place bid"})
	}
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"auction-engine/internal/domain"
	"auction-engine/internal/services"
	"auction-engine/pkg/logger"
)

// PaymentHandler receives the payment gateway's capture callback. The
// engine never initiates capture itself.
type PaymentHandler struct {
	resolver *services.AuctionResolver
	log      logger.Logger
}

func NewPaymentHandler(resolver *services.AuctionResolver, log logger.Logger) *PaymentHandler {
	return &PaymentHandler{resolver: resolver, log: log}
}

func (h *PaymentHandler) Confirm(c echo.Context) error {
	var conf domain.PaymentConfirmation
	if err := c.Bind(&conf); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if conf.AuctionID == "" || conf.WinnerID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "auction_id and winner_id are required"})
	}

	err := h.resolver.ConfirmPayment(c.Request().Context(), &conf)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]string{"message": "Payment confirmed"})
	case errors.Is(err, domain.ErrAuctionNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Auction not found"})
	case errors.Is(err, domain.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Auction is not awaiting payment"})
	default:
		h.log.Error("Payment confirmation failed", "auction_id", conf.AuctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to confirm payment"})
	}
}

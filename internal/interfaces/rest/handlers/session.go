package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhmdzlt/auto-shop2/internal/application"
	"github.com/mhmdzlt/auto-shop2/internal/application/services"
	"github.com/mhmdzlt/auto-shop2/internal/interfaces/rest"
)

type createIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	OrderID  string `json:"order_id"`
}

type createIntentResponse struct {
	Success        bool   `json:"success"`
	ID             string `json:"id"`
	ClientSecret   string `json:"client_secret"`
	Customer       string `json:"customer"`
	EphemeralKey   string `json:"ephemeral_key"`
	PublishableKey string `json:"publishable_key"`
}

// CreatePaymentIntent provisions a payment session for an order.
func (h *Handlers) CreatePaymentIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, err := h.sessionService.CreatePaymentSession(c.Request.Context(), services.CreateSessionCommand{
		AmountCents: req.Amount,
		Currency:    req.Currency,
		OrderID:     req.OrderID,
	})
	if err != nil {
		if application.IsErrorCode(err, application.ErrCodeValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rest.WriteError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, createIntentResponse{
		Success:        true,
		ID:             session.PaymentIntentID,
		ClientSecret:   session.ClientSecret,
		Customer:       session.CustomerID,
		EphemeralKey:   session.EphemeralKeySecret,
		PublishableKey: session.PublishableKey,
	})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhmdzlt/auto-shop2/internal/application"
	"github.com/mhmdzlt/auto-shop2/internal/application/services"
	"github.com/mhmdzlt/auto-shop2/internal/infrastructure/stripe"
	"github.com/mhmdzlt/auto-shop2/internal/interfaces/rest"
)

// HandleStripeWebhook ingests one gateway notification.
//
// The body is read as raw bytes and verified before any parsing. Unverified
// deliveries are rejected with 400 and touch no state. Once verified, the
// delivery is acknowledged with 200 even when it cannot be applied
// (unmatched record, datastore failure): the event is journaled, and
// acknowledging stops the gateway from retrying an event that re-delivery
// cannot fix.
func (h *Handlers) HandleStripeWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		rest.WriteError(c, application.NewVerificationError(err), h.logger)
		return
	}

	signature := c.GetHeader(stripe.SignatureHeader)
	if err := stripe.VerifySignature(body, signature, h.webhookSecret, h.signatureTolerance); err != nil {
		h.logger.Warn("webhook verification failed", "error", err)
		if errors.Is(err, stripe.ErrStaleEvent) {
			rest.WriteError(c, application.NewStaleEventError(err), h.logger)
			return
		}
		rest.WriteError(c, application.NewVerificationError(err), h.logger)
		return
	}

	event, err := services.ClassifyEvent(body)
	if err != nil {
		rest.WriteError(c, err, h.logger)
		return
	}

	if err := h.reconcileService.Apply(c.Request.Context(), event); err != nil {
		switch {
		case application.IsErrorCode(err, application.ErrCodeResolution):
			// Verified but unmatched: journaled, acknowledged.
			c.JSON(http.StatusOK, gin.H{"received": true})
		case application.IsErrorCode(err, application.ErrCodePersistence):
			// The event is journaled; retried delivery cannot repair a
			// datastore outage, so acknowledge instead of provoking retries.
			h.logger.Error("reconciliation persistence failure acknowledged", "event_id", event.ID, "error", err)
			c.JSON(http.StatusOK, gin.H{"received": true})
		default:
			rest.WriteError(c, err, h.logger)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mhmdzlt/auto-shop2/internal/application"
	"github.com/mhmdzlt/auto-shop2/internal/domain"
)

// eventEnvelope is the provider's notification envelope. Only the fields the
// engine acts on are decoded; the rest stays in the raw snapshot.
type eventEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object struct {
			ID       string `json:"id"`
			Metadata struct {
				OrderID string `json:"order_id"`
			} `json:"metadata"`
			// PaymentIntent is set on checkout session objects and references
			// the intent the session settled.
			PaymentIntent    string `json:"payment_intent"`
			LastPaymentError *struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
		} `json:"object"`
	} `json:"data"`
}

// ClassifyEvent parses a verified raw payload into a typed gateway event.
//
// Unknown event types classify successfully as KindUnhandled so the endpoint
// can acknowledge them and the gateway stops retrying; a payload missing its
// identifying fields is a hard classification error.
func ClassifyEvent(payload []byte) (domain.GatewayEvent, error) {
	var env eventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return domain.GatewayEvent{}, application.NewClassificationError(fmt.Errorf("invalid event payload: %w", err))
	}

	if env.ID == "" || env.Type == "" {
		return domain.GatewayEvent{}, application.NewClassificationError(fmt.Errorf("event missing id or type"))
	}

	event := domain.GatewayEvent{
		ID:         env.ID,
		ObjectID:   env.Data.Object.ID,
		OrderID:    env.Data.Object.Metadata.OrderID,
		OccurredAt: time.Unix(env.Created, 0),
		Raw:        json.RawMessage(payload),
	}

	switch env.Type {
	case "payment_intent.succeeded":
		event.Kind = domain.KindIntentSucceeded
	case "payment_intent.payment_failed":
		event.Kind = domain.KindIntentFailed
	case "payment_intent.canceled":
		event.Kind = domain.KindIntentCanceled
	case "checkout.session.completed":
		event.Kind = domain.KindCheckoutCompleted
	default:
		event.Kind = domain.KindUnhandled
		return event, nil
	}

	if env.Data.Object.ID == "" {
		return domain.GatewayEvent{}, application.NewClassificationError(fmt.Errorf("%s event missing object id", env.Type))
	}

	if event.Kind == domain.KindCheckoutCompleted {
		event.PaymentIntentID = env.Data.Object.PaymentIntent
	} else {
		event.PaymentIntentID = env.Data.Object.ID
	}

	if event.Kind == domain.KindIntentFailed {
		if env.Data.Object.LastPaymentError != nil && env.Data.Object.LastPaymentError.Message != "" {
			event.FailureMessage = env.Data.Object.LastPaymentError.Message
		} else {
			event.FailureMessage = "Payment failed"
		}
	}

	return event, nil
}

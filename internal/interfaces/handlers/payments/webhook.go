package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"voicepost-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type WebhookHandler struct {
	DB            *gorm.DB
	WebhookSecret string
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type paymentIntentObject struct {
	ID             string            `json:"id"`
	AmountReceived int               `json:"amount_received"`
	Currency       string            `json:"currency"`
	Status         string            `json:"status"`
	Metadata       map[string]string `json:"metadata"`
}

// HandleWebhook POST /api/v1/stripe/webhook. Raw body, signature verification,
// then process. Mounted before the session middleware so the raw body is intact.
func (wh *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	rawBody := c.BodyRaw()
	sig := c.Get("Stripe-Signature")

	if len(rawBody) == 0 {
		log.Warn().Msg("Stripe webhook received empty body (ensure no global body parser consumes the webhook body)")
		return c.Status(400).SendString("Webhook Error: empty body")
	}

	if err := verifyStripeSignature(rawBody, sig, wh.WebhookSecret); err != nil {
		log.Warn().Err(err).Bool("has_sig", sig != "").Bool("has_secret", wh.WebhookSecret != "").Msg("Stripe webhook signature verification failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	var event stripeEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		log.Warn().Err(err).Msg("Stripe webhook JSON parse failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	if event.Type == "payment_intent.succeeded" {
		var pi paymentIntentObject
		if err := json.Unmarshal(event.Data.Object, &pi); err != nil {
			return c.Status(200).SendString("ok")
		}

		if err := wh.handlePaymentIntentSucceeded(pi, event.ID, rawBody); err != nil {
			// Always 200 for domain errors so Stripe does not retry forever.
			log.Error().Err(err).Str("payment_intent", pi.ID).Msg("Stripe webhook processing failed")
			return c.Status(200).SendString("ok")
		}
	}

	return c.Status(200).SendString("ok")
}

func (wh *WebhookHandler) handlePaymentIntentSucceeded(pi paymentIntentObject, eventID string, rawBody []byte) error {
	workspaceID := pi.Metadata["workspace_id"]
	creditsStr := pi.Metadata["credits_amount"]
	plan := pi.Metadata["plan"]

	if workspaceID == "" || creditsStr == "" {
		return nil // not one of ours, skip silently
	}

	wsID, err := uuid.Parse(workspaceID)
	if err != nil {
		return nil
	}
	credits, err := strconv.ParseInt(creditsStr, 10, 64)
	if err != nil || credits <= 0 {
		return nil
	}

	return wh.DB.Transaction(func(tx *gorm.DB) error {
		// Idempotency: intent IDs are unique, replays are no-ops.
		var existing domain.Payment
		if err := tx.Where("stripe_payment_intent_id = ?", pi.ID).First(&existing).Error; err == nil {
			return nil
		}

		payment := domain.Payment{
			StripePaymentIntentID: pi.ID,
			StripeEventID:         eventID,
			WorkspaceID:           wsID,
			CreditsAmount:         credits,
			Plan:                  plan,
			AmountPaidCents:       pi.AmountReceived,
			Currency:              pi.Currency,
			Status:                pi.Status,
			RawPaymentIntent:      rawBody,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		return grantCreditsInTransaction(tx, wsID, credits, plan)
	})
}

// grantCreditsInTransaction tops up a workspace's credit balance and, when the
// payment carries a plan, moves the workspace onto it.
func grantCreditsInTransaction(tx *gorm.DB, workspaceID uuid.UUID, credits int64, plan string) error {
	var ws domain.Workspace
	if err := tx.Where("workspace_id = ?", workspaceID).First(&ws).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("workspace %s not found for paid credits", workspaceID)
		}
		return err
	}

	updates := map[string]interface{}{
		"credits_remaining": gorm.Expr("credits_remaining + ?", credits),
		"credits_total":     gorm.Expr("credits_total + ?", credits),
		"updated_at":        time.Now(),
	}
	if plan != "" && plan != ws.Plan && domain.IsValidPlan(plan) {
		updates["plan"] = plan
	}
	return tx.Model(&domain.Workspace{}).
		Where("workspace_id = ?", workspaceID).
		Updates(updates).Error
}

// verifyStripeSignature verifies the Stripe-Signature header using the webhook secret.
func verifyStripeSignature(payload []byte, sigHeader, secret string) error {
	if sigHeader == "" || secret == "" {
		return errors.New("missing signature or secret")
	}

	var timestamp string
	var signatures []string

	parts := strings.Split(sigHeader, ",")
	for _, part := range parts {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return errors.New("invalid signature format")
	}

	signedPayload := timestamp + "." + string(payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expectedSig := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expectedSig)) {
			ts, err := strconv.ParseInt(timestamp, 10, 64)
			if err != nil {
				return errors.New("invalid timestamp")
			}
			diff := time.Now().Unix() - ts
			if diff < 0 {
				diff = -diff
			}
			if diff > 300 {
				return errors.New("timestamp too old")
			}
			return nil
		}
	}

	return errors.New("signature mismatch")
}

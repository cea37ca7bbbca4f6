package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment records a processed Stripe event for a workspace credit top-up
// or plan change. StripePaymentIntentID's unique index is the idempotency
// guard against webhook redelivery.
type Payment struct {
	ID                    uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	StripePaymentIntentID string         `gorm:"column:stripe_payment_intent_id;uniqueIndex;not null" json:"stripe_payment_intent_id"`
	StripeEventID         string         `gorm:"column:stripe_event_id;uniqueIndex;not null" json:"stripe_event_id"`
	WorkspaceID           uuid.UUID      `gorm:"column:workspace_id;type:uuid;not null" json:"workspace_id"`
	CreditsAmount         int64          `gorm:"column:credits_amount;not null" json:"credits_amount"`
	Plan                  string         `gorm:"column:plan" json:"plan"`
	AmountPaidCents       int            `gorm:"column:amount_paid_cents;not null" json:"amount_paid_cents"`
	Currency              string         `gorm:"column:currency;not null" json:"currency"`
	Status                string         `gorm:"column:status;not null" json:"status"`
	RawPaymentIntent      datatypes.JSON `gorm:"column:raw_payment_intent;type:jsonb;not null" json:"raw_payment_intent"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
